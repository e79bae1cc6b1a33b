// Package inputs reads solve input documents in JSON or YAML and resolves
// them into model.InputData.
package inputs

// Document is the wire form of an input file. Pointer fields distinguish a
// missing value from a zero one.
type Document struct {
	Parameters   *parametersDoc   `json:"parameters" yaml:"parameters"`
	Assets       []assetDoc       `json:"assets" yaml:"assets"`
	Rates        []rateDoc        `json:"rates" yaml:"rates"`
	States       []stateDoc       `json:"states" yaml:"states"`
	BMUs         []bmuDoc         `json:"bmus" yaml:"bmus"`
	Offers       []offerDoc       `json:"offers" yaml:"offers"`
	Instructions []instructionDoc `json:"instructions" yaml:"instructions"`
	BOA          *boaDoc          `json:"boa" yaml:"boa"`
}

type parametersDoc struct {
	ExecutionTime *string `json:"execution_time" yaml:"execution_time"`
}

type assetDoc struct {
	ID                      *int     `json:"id" yaml:"id"`
	Name                    string   `json:"name" yaml:"name"`
	Capacity                *float64 `json:"capacity" yaml:"capacity"`
	RunningCostPerMWh       float64  `json:"running_cost_per_mw_hr" yaml:"running_cost_per_mw_hr"`
	MinRequiredProfit       float64  `json:"min_required_profit" yaml:"min_required_profit"`
	MaxImportMWh            float64  `json:"max_import_mw_hr" yaml:"max_import_mw_hr"`
	MaxExportMWh            float64  `json:"max_export_mw_hr" yaml:"max_export_mw_hr"`
	SingleImportMW          *float64 `json:"single_import_mw_hr" yaml:"single_import_mw_hr"`
	SingleExportMW          *float64 `json:"single_export_mw_hr" yaml:"single_export_mw_hr"`
	MinZeroTime             float64  `json:"min_zero_time" yaml:"min_zero_time"`
	MinNonZeroTime          float64  `json:"min_non_zero_time" yaml:"min_non_zero_time"`
	NoticeToDeviateFromZero float64  `json:"notice_to_deviate_from_zero" yaml:"notice_to_deviate_from_zero"`
	NoticeToDeliverBid      float64  `json:"notice_to_deliver_bid" yaml:"notice_to_deliver_bid"`
	MaxDeliveryPeriod       *float64 `json:"max_delivery_period" yaml:"max_delivery_period"`
}

type rampDoc struct {
	RampUpImport   *float64 `json:"ramp_up_import" yaml:"ramp_up_import"`
	RampUpExport   *float64 `json:"ramp_up_export" yaml:"ramp_up_export"`
	RampDownImport *float64 `json:"ramp_down_import" yaml:"ramp_down_import"`
	RampDownExport *float64 `json:"ramp_down_export" yaml:"ramp_down_export"`
	MinMW          int      `json:"min_mw" yaml:"min_mw"`
	MaxMW          *int     `json:"max_mw" yaml:"max_mw"`
}

type rateDoc struct {
	ID      *int `json:"id" yaml:"id"`
	Asset   *int `json:"asset" yaml:"asset"`
	rampDoc `yaml:",inline"`
}

type stateDoc struct {
	ID        *int    `json:"id" yaml:"id"`
	Asset     *int    `json:"asset" yaml:"asset"`
	Start     *string `json:"start" yaml:"start"`
	End       *string `json:"end" yaml:"end"`
	Charge    float64 `json:"charge" yaml:"charge"`
	Available bool    `json:"available" yaml:"available"`
}

type bmuDoc struct {
	ID     *int   `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Assets []int  `json:"assets" yaml:"assets"`
}

type offerDoc struct {
	ID          *int    `json:"id" yaml:"id"`
	BMU         *int    `json:"bmu" yaml:"bmu"`
	PricePerMWh float64 `json:"price_mw_hr" yaml:"price_mw_hr"`
}

type instructionDoc struct {
	ID    *int     `json:"id" yaml:"id"`
	Asset *int     `json:"asset" yaml:"asset"`
	MW    *float64 `json:"mw" yaml:"mw"`
	Start *string  `json:"start" yaml:"start"`
	End   *string  `json:"end" yaml:"end"`
	BOA   *int     `json:"boa" yaml:"boa"`
}

// boaDoc names its BMU directly or through an offer. A price given on the
// BOA itself takes precedence over the offer's.
type boaDoc struct {
	ID          *int      `json:"id" yaml:"id"`
	BMU         *int      `json:"bmu" yaml:"bmu"`
	Offer       *int      `json:"offer" yaml:"offer"`
	Start       *string   `json:"start" yaml:"start"`
	End         *string   `json:"end" yaml:"end"`
	MW          *float64  `json:"mw" yaml:"mw"`
	PricePerMWh *float64  `json:"price_mw_hr" yaml:"price_mw_hr"`
	Rates       []rampDoc `json:"rates" yaml:"rates"`
}
