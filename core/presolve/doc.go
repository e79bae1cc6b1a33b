// Package presolve turns a dispatch request and the reference data of its
// BMU into the candidate set handed to the optimisation engine.
//
// Every function here is pure given its inputs. The execution time is always
// passed in explicitly so that candidate generation is reproducible.
package presolve
