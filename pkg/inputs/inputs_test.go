package inputs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bmu-balancer/core/model"
)

func checkSimple(t *testing.T, data model.InputData) {
	t.Helper()
	assert.True(t, data.Parameters.ExecutionTime.Equal(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)))
	require.Len(t, data.Assets, 2)
	require.Len(t, data.Rates, 2)
	require.Len(t, data.States, 2)
	require.Len(t, data.BMUs, 1)
	require.Len(t, data.Instructions, 1)

	a := data.Assets[1]
	assert.Equal(t, "battery-b", a.Name)
	require.NotNil(t, a.MaxDeliveryPeriod)
	assert.Equal(t, 60.0, *a.MaxDeliveryPeriod)
	require.Len(t, a.Rates, 1)
	require.NotNil(t, a.Rates[0].MaxMW)
	assert.Equal(t, 10, *a.Rates[0].MaxMW)

	assert.Equal(t, 4, data.Instructions[0].RequestID)
	assert.False(t, data.States[1].Available)

	req := data.Request
	assert.Equal(t, 5, req.ID)
	assert.Equal(t, 20.0, req.MW)
	assert.Equal(t, 10.0, req.PricePerMWh)
	assert.Equal(t, 7, req.BMU.ID)
	require.Len(t, req.BMU.Assets, 2)
	assert.Len(t, req.BMU.Assets[0].Rates, 1, "bmu assets carry their rates")
	require.Len(t, req.Rates, 1)
	assert.Equal(t, time.Hour, req.Duration())
}

func TestLoadJSON(t *testing.T) {
	data, err := Load("testdata/simple.json")
	require.NoError(t, err)
	checkSimple(t, data)
}

func TestLoadYAML(t *testing.T) {
	data, err := Load("testdata/simple.yaml")
	require.NoError(t, err)
	checkSimple(t, data)
}

func TestLoadUnsupported(t *testing.T) {
	_, err := Load("testdata/simple.xlsx")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExecutionTimeDefault(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := `{"bmus": [{"id": 1}], "boa": {"id": 1, "bmu": 1, "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z", "mw": 1}}`
	data, err := Loader{Now: func() time.Time { return now }}.Decode(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, now, data.Parameters.ExecutionTime)

	_, err = Loader{}.Decode(strings.NewReader(doc), FormatJSON)
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestBOAPriceOverridesOffer(t *testing.T) {
	doc := `{"bmus": [{"id": 1}], "offers": [{"id": 2, "bmu": 1, "price_mw_hr": 30}],
		"boa": {"id": 1, "offer": 2, "price_mw_hr": 45, "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z", "mw": -5}}`
	data, err := Loader{Now: time.Now}.Decode(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 45.0, data.Request.PricePerMWh)
	assert.Equal(t, 1, data.Request.BMU.ID)
	assert.True(t, data.Request.IsImport())
}

func TestDecodeErrors(t *testing.T) {
	const boa = `"boa": {"id": 1, "bmu": 1, "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z", "mw": 1}`
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"missing capacity", `{"assets": [{"id": 1}], "bmus": [{"id": 1}], ` + boa + `}`, ErrMissingField},
		{"missing asset id", `{"assets": [{"capacity": 1}], "bmus": [{"id": 1}], ` + boa + `}`, ErrMissingField},
		{"duplicate asset", `{"assets": [{"id": 1, "capacity": 1}, {"id": 1, "capacity": 2}], "bmus": [{"id": 1}], ` + boa + `}`, ErrDuplicateID},
		{"duplicate bmu", `{"bmus": [{"id": 1}, {"id": 1}], ` + boa + `}`, ErrDuplicateID},
		{"rate unknown asset", `{"rates": [{"id": 1, "asset": 9, "ramp_up_import": 1, "ramp_up_export": 1, "ramp_down_import": 1, "ramp_down_export": 1}], "bmus": [{"id": 1}], ` + boa + `}`, ErrUnknownReference},
		{"rate missing ramp", `{"assets": [{"id": 1, "capacity": 1}], "rates": [{"id": 1, "asset": 1, "ramp_up_import": 1}], "bmus": [{"id": 1}], ` + boa + `}`, ErrMissingField},
		{"bmu unknown asset", `{"bmus": [{"id": 1, "assets": [3]}], ` + boa + `}`, ErrUnknownReference},
		{"boa unknown bmu", `{"bmus": [{"id": 2}], ` + boa + `}`, ErrUnknownReference},
		{"boa unknown offer", `{"bmus": [{"id": 1}], "boa": {"id": 1, "offer": 4, "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z", "mw": 1}}`, ErrUnknownReference},
		{"missing boa", `{"bmus": [{"id": 1}]}`, ErrMissingField},
		{"naive timestamp", `{"bmus": [{"id": 1}], "boa": {"id": 1, "bmu": 1, "start": "2024-01-01T10:00:00", "end": "2024-01-01T11:00:00Z", "mw": 1}}`, ErrNaiveTimestamp},
		{"state naive", `{"assets": [{"id": 1, "capacity": 1}], "states": [{"id": 1, "asset": 1, "start": "2024-01-01 10:00:00", "end": "2024-01-01T11:00:00Z"}], "bmus": [{"id": 1}], ` + boa + `}`, ErrNaiveTimestamp},
		{"instruction missing mw", `{"assets": [{"id": 1, "capacity": 1}], "instructions": [{"id": 1, "asset": 1, "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z"}], "bmus": [{"id": 1}], ` + boa + `}`, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Loader{Now: time.Now}.Decode(strings.NewReader(tt.doc), FormatJSON)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Loader{Now: time.Now}.Decode(strings.NewReader(`{"asets": []}`), FormatJSON)
	assert.Error(t, err)
	_, err = Loader{Now: time.Now}.Decode(strings.NewReader("asets: []\n"), FormatYAML)
	assert.Error(t, err)
}

func TestBOAWindowMustBePositive(t *testing.T) {
	doc := `{"bmus": [{"id": 1}], "boa": {"id": 1, "bmu": 1, "start": "2024-01-01T11:00:00Z", "end": "2024-01-01T10:00:00Z", "mw": 1}}`
	_, err := Loader{Now: time.Now}.Decode(strings.NewReader(doc), FormatJSON)
	assert.Error(t, err)
}

func TestSingleLevelMustBeWhole(t *testing.T) {
	doc := `{"assets": [{"id": 1, "capacity": 5, "single_export_mw_hr": 2.5}], "bmus": [{"id": 1}],
		"boa": {"id": 1, "bmu": 1, "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z", "mw": 1}}`
	_, err := Loader{Now: time.Now}.Decode(strings.NewReader(doc), FormatJSON)
	assert.Error(t, err)
}
