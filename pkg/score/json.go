package score

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// jsonFloat encodes NaN and the infinities as the strings "NaN", "+Inf"
// and "-Inf". Finite values stay JSON numbers.
type jsonFloat float32

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.AppendQuote(nil, strconv.FormatFloat(v, 'g', -1, 32)), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 32), nil
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || b[0] != '"' {
		return json.Unmarshal(b, (*float32)(f))
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil {
		return fmt.Errorf("invalid float: %q: %w", s, err)
	}
	*f = jsonFloat(v)
	return nil
}

type paramsJSON struct {
	MinScore     jsonFloat `json:"min_score"`
	MaxScore     jsonFloat `json:"max_score"`
	MinAdvWeight jsonFloat `json:"min_adv_weight"`
	NoAdvScore   jsonFloat `json:"no_adv_score"`
	MinAdvBoost  jsonFloat `json:"min_adv_boost"`
	MaxAdvBoost  jsonFloat `json:"max_adv_boost"`
	Slope        jsonFloat `json:"slope"`
	Intercept    jsonFloat `json:"intercept"`
}

// MarshalJSON writes non-finite params (a NaN sentinel, say) as strings.
func (p Params) MarshalJSON() ([]byte, error) {
	return json.Marshal(paramsJSON{
		MinScore:     jsonFloat(p.MinScore),
		MaxScore:     jsonFloat(p.MaxScore),
		MinAdvWeight: jsonFloat(p.MinAdvWeight),
		NoAdvScore:   jsonFloat(p.NoAdvScore),
		MinAdvBoost:  jsonFloat(p.MinAdvBoost),
		MaxAdvBoost:  jsonFloat(p.MaxAdvBoost),
		Slope:        jsonFloat(p.Slope),
		Intercept:    jsonFloat(p.Intercept),
	})
}

// UnmarshalJSON accepts numbers or the strings written by MarshalJSON.
// Keys missing from b keep their current value.
func (p *Params) UnmarshalJSON(b []byte) error {
	v := paramsJSON{
		MinScore:     jsonFloat(p.MinScore),
		MaxScore:     jsonFloat(p.MaxScore),
		MinAdvWeight: jsonFloat(p.MinAdvWeight),
		NoAdvScore:   jsonFloat(p.NoAdvScore),
		MinAdvBoost:  jsonFloat(p.MinAdvBoost),
		MaxAdvBoost:  jsonFloat(p.MaxAdvBoost),
		Slope:        jsonFloat(p.Slope),
		Intercept:    jsonFloat(p.Intercept),
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*p = Params{
		MinScore:     float32(v.MinScore),
		MaxScore:     float32(v.MaxScore),
		MinAdvWeight: float32(v.MinAdvWeight),
		NoAdvScore:   float32(v.NoAdvScore),
		MinAdvBoost:  float32(v.MinAdvBoost),
		MaxAdvBoost:  float32(v.MaxAdvBoost),
		Slope:        float32(v.Slope),
		Intercept:    float32(v.Intercept),
	}
	return nil
}

type recordJSON struct {
	Score          jsonFloat `json:"score"`
	AdvWeight      jsonFloat `json:"adv_weight"`
	ViewRestricted bool      `json:"view_restricted"`
}

// MarshalJSON writes non-finite score and weight values as strings.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Score:          jsonFloat(r.Score),
		AdvWeight:      jsonFloat(r.AdvWeight),
		ViewRestricted: r.ViewRestricted,
	})
}

// UnmarshalJSON accepts numbers or the strings written by MarshalJSON.
func (r *Record) UnmarshalJSON(b []byte) error {
	v := recordJSON{
		Score:          jsonFloat(r.Score),
		AdvWeight:      jsonFloat(r.AdvWeight),
		ViewRestricted: r.ViewRestricted,
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	*r = Record{
		Score:          float32(v.Score),
		AdvWeight:      float32(v.AdvWeight),
		ViewRestricted: v.ViewRestricted,
	}
	return nil
}
