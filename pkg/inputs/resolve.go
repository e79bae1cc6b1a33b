package inputs

import (
	"fmt"
	"math"

	"github.com/kilianp07/bmu-balancer/core/model"
)

// Resolve validates doc and links its references. Assets carry their rates
// and BMUs carry their assets.
func (l Loader) Resolve(doc Document) (model.InputData, error) {
	var out model.InputData

	if err := l.parameters(doc.Parameters, &out.Parameters); err != nil {
		return out, err
	}

	rates, err := resolveRates(doc.Rates)
	if err != nil {
		return out, err
	}
	assets, err := resolveAssets(doc.Assets)
	if err != nil {
		return out, err
	}
	assetIdx := make(map[int]int, len(assets))
	for i, a := range assets {
		assetIdx[a.ID] = i
	}
	for _, r := range rates {
		i, ok := assetIdx[r.AssetID]
		if !ok {
			return out, fmt.Errorf("rate %d asset %d: %w", r.ID, r.AssetID, ErrUnknownReference)
		}
		assets[i].Rates = append(assets[i].Rates, r)
	}
	out.Assets = assets
	out.Rates = rates

	if out.States, err = resolveStates(doc.States, assetIdx); err != nil {
		return out, err
	}
	if out.Instructions, err = resolveInstructions(doc.Instructions, assetIdx); err != nil {
		return out, err
	}
	if out.BMUs, err = resolveBMUs(doc.BMUs, assets, assetIdx); err != nil {
		return out, err
	}
	if out.Request, err = resolveBOA(doc.BOA, doc.Offers, out.BMUs); err != nil {
		return out, err
	}
	return out, nil
}

func (l Loader) parameters(p *parametersDoc, out *model.Parameters) error {
	if p == nil || p.ExecutionTime == nil {
		if l.Now == nil {
			return missing("parameters.execution_time")
		}
		out.ExecutionTime = l.Now()
		return nil
	}
	t, err := parseTime("parameters.execution_time", *p.ExecutionTime)
	if err != nil {
		return err
	}
	out.ExecutionTime = t
	return nil
}

type ids map[int]struct{}

func (s ids) add(collection string, id *int) (int, error) {
	if id == nil {
		return 0, missing(collection + ".id")
	}
	if _, dup := s[*id]; dup {
		return 0, fmt.Errorf("%s %d: %w", collection, *id, ErrDuplicateID)
	}
	s[*id] = struct{}{}
	return *id, nil
}

func wholeMW(field string, v *float64) (int, error) {
	if v == nil {
		return 0, nil
	}
	if *v != math.Trunc(*v) {
		return 0, fmt.Errorf("%s %v must be a whole MW", field, *v)
	}
	return int(*v), nil
}

func resolveAssets(docs []assetDoc) ([]model.Asset, error) {
	seen := ids{}
	out := make([]model.Asset, 0, len(docs))
	for _, d := range docs {
		id, err := seen.add("asset", d.ID)
		if err != nil {
			return nil, err
		}
		if d.Capacity == nil {
			return nil, missing(fmt.Sprintf("asset %d capacity", id))
		}
		si, err := wholeMW(fmt.Sprintf("asset %d single_import_mw_hr", id), d.SingleImportMW)
		if err != nil {
			return nil, err
		}
		se, err := wholeMW(fmt.Sprintf("asset %d single_export_mw_hr", id), d.SingleExportMW)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Asset{
			ID:                      id,
			Name:                    d.Name,
			Capacity:                *d.Capacity,
			RunningCostPerMWh:       d.RunningCostPerMWh,
			MinRequiredProfit:       d.MinRequiredProfit,
			MaxImportMWh:            d.MaxImportMWh,
			MaxExportMWh:            d.MaxExportMWh,
			SingleImportMW:          si,
			SingleExportMW:          se,
			MinZeroTime:             d.MinZeroTime,
			MinNonZeroTime:          d.MinNonZeroTime,
			NoticeToDeviateFromZero: d.NoticeToDeviateFromZero,
			NoticeToDeliverBid:      d.NoticeToDeliverBid,
			MaxDeliveryPeriod:       d.MaxDeliveryPeriod,
		})
	}
	return out, nil
}

func resolveRamp(field string, d rampDoc) (model.Rate, error) {
	vals := []struct {
		name string
		v    *float64
	}{
		{"ramp_up_import", d.RampUpImport},
		{"ramp_up_export", d.RampUpExport},
		{"ramp_down_import", d.RampDownImport},
		{"ramp_down_export", d.RampDownExport},
	}
	for _, v := range vals {
		if v.v == nil {
			return model.Rate{}, missing(field + " " + v.name)
		}
	}
	return model.Rate{
		RampUpImport:   *d.RampUpImport,
		RampUpExport:   *d.RampUpExport,
		RampDownImport: *d.RampDownImport,
		RampDownExport: *d.RampDownExport,
		MinMW:          d.MinMW,
		MaxMW:          d.MaxMW,
	}, nil
}

func resolveRates(docs []rateDoc) ([]model.Rate, error) {
	seen := ids{}
	out := make([]model.Rate, 0, len(docs))
	for _, d := range docs {
		id, err := seen.add("rate", d.ID)
		if err != nil {
			return nil, err
		}
		if d.Asset == nil {
			return nil, missing(fmt.Sprintf("rate %d asset", id))
		}
		r, err := resolveRamp(fmt.Sprintf("rate %d", id), d.rampDoc)
		if err != nil {
			return nil, err
		}
		r.ID = id
		r.AssetID = *d.Asset
		out = append(out, r)
	}
	return out, nil
}

func resolveStates(docs []stateDoc, assets map[int]int) ([]model.AssetState, error) {
	seen := ids{}
	out := make([]model.AssetState, 0, len(docs))
	for _, d := range docs {
		id, err := seen.add("state", d.ID)
		if err != nil {
			return nil, err
		}
		field := fmt.Sprintf("state %d", id)
		if d.Asset == nil {
			return nil, missing(field + " asset")
		}
		if _, ok := assets[*d.Asset]; !ok {
			return nil, fmt.Errorf("%s asset %d: %w", field, *d.Asset, ErrUnknownReference)
		}
		start, err := requiredTime(field+" start", d.Start)
		if err != nil {
			return nil, err
		}
		end, err := requiredTime(field+" end", d.End)
		if err != nil {
			return nil, err
		}
		out = append(out, model.AssetState{ID: id, AssetID: *d.Asset, Start: start, End: end, Charge: d.Charge, Available: d.Available})
	}
	return out, nil
}

func resolveInstructions(docs []instructionDoc, assets map[int]int) ([]model.Instruction, error) {
	seen := ids{}
	out := make([]model.Instruction, 0, len(docs))
	for _, d := range docs {
		id, err := seen.add("instruction", d.ID)
		if err != nil {
			return nil, err
		}
		field := fmt.Sprintf("instruction %d", id)
		if d.Asset == nil {
			return nil, missing(field + " asset")
		}
		if _, ok := assets[*d.Asset]; !ok {
			return nil, fmt.Errorf("%s asset %d: %w", field, *d.Asset, ErrUnknownReference)
		}
		if d.MW == nil {
			return nil, missing(field + " mw")
		}
		start, err := requiredTime(field+" start", d.Start)
		if err != nil {
			return nil, err
		}
		end, err := requiredTime(field+" end", d.End)
		if err != nil {
			return nil, err
		}
		in := model.Instruction{ID: id, AssetID: *d.Asset, MW: *d.MW, Start: start, End: end}
		if d.BOA != nil {
			in.RequestID = *d.BOA
		}
		out = append(out, in)
	}
	return out, nil
}

func resolveBMUs(docs []bmuDoc, assets []model.Asset, idx map[int]int) ([]model.BMU, error) {
	seen := ids{}
	out := make([]model.BMU, 0, len(docs))
	for _, d := range docs {
		id, err := seen.add("bmu", d.ID)
		if err != nil {
			return nil, err
		}
		b := model.BMU{ID: id, Name: d.Name, Assets: make([]model.Asset, 0, len(d.Assets))}
		for _, aid := range d.Assets {
			i, ok := idx[aid]
			if !ok {
				return nil, fmt.Errorf("bmu %d asset %d: %w", id, aid, ErrUnknownReference)
			}
			b.Assets = append(b.Assets, assets[i])
		}
		out = append(out, b)
	}
	return out, nil
}

func resolveBOA(d *boaDoc, offers []offerDoc, bmus []model.BMU) (model.DispatchRequest, error) {
	var req model.DispatchRequest
	if d == nil {
		return req, missing("boa")
	}
	if d.ID == nil {
		return req, missing("boa id")
	}
	req.ID = *d.ID
	if d.MW == nil {
		return req, missing("boa mw")
	}
	req.MW = *d.MW

	var err error
	if req.Start, err = requiredTime("boa start", d.Start); err != nil {
		return req, err
	}
	if req.End, err = requiredTime("boa end", d.End); err != nil {
		return req, err
	}
	if !req.End.After(req.Start) {
		return req, fmt.Errorf("boa %d: end %s not after start %s", req.ID, req.End, req.Start)
	}

	bmuID := d.BMU
	if d.Offer != nil {
		offer, err := findOffer(offers, *d.Offer)
		if err != nil {
			return req, err
		}
		req.PricePerMWh = offer.PricePerMWh
		if bmuID == nil {
			bmuID = offer.BMU
		}
	}
	if d.PricePerMWh != nil {
		req.PricePerMWh = *d.PricePerMWh
	}
	if bmuID == nil {
		return req, missing("boa bmu")
	}
	found := false
	for _, b := range bmus {
		if b.ID == *bmuID {
			req.BMU = b
			found = true
			break
		}
	}
	if !found {
		return req, fmt.Errorf("boa %d bmu %d: %w", req.ID, *bmuID, ErrUnknownReference)
	}

	for i, rd := range d.Rates {
		r, err := resolveRamp(fmt.Sprintf("boa rate %d", i), rd)
		if err != nil {
			return req, err
		}
		req.Rates = append(req.Rates, r)
	}
	return req, nil
}

func findOffer(offers []offerDoc, id int) (offerDoc, error) {
	seen := ids{}
	var match *offerDoc
	for i := range offers {
		oid, err := seen.add("offer", offers[i].ID)
		if err != nil {
			return offerDoc{}, err
		}
		if oid == id {
			match = &offers[i]
		}
	}
	if match == nil {
		return offerDoc{}, fmt.Errorf("offer %d: %w", id, ErrUnknownReference)
	}
	return *match, nil
}
