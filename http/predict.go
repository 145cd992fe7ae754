package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"winequality/ml"
)

// predictRequest mirrors ml.WineSample with pointer fields so that an absent
// value can be told apart from an explicit zero.
type predictRequest struct {
	FixedAcidity       *float64 `json:"fixed_acidity" validate:"required"`
	VolatileAcidity    *float64 `json:"volatile_acidity" validate:"required"`
	CitricAcid         *float64 `json:"citric_acid" validate:"required"`
	ResidualSugar      *float64 `json:"residual_sugar" validate:"required"`
	Chlorides          *float64 `json:"chlorides" validate:"required"`
	FreeSulfurDioxide  *float64 `json:"free_sulfur_dioxide" validate:"required"`
	TotalSulfurDioxide *float64 `json:"total_sulfur_dioxide" validate:"required"`
	Density            *float64 `json:"density" validate:"required"`
	PH                 *float64 `json:"pH" validate:"required"`
	Sulphates          *float64 `json:"sulphates" validate:"required"`
	Alcohol            *float64 `json:"alcohol" validate:"required"`
}

// sample must only be called on a validated request.
func (r predictRequest) sample() ml.WineSample {
	return ml.WineSample{
		FixedAcidity:       *r.FixedAcidity,
		VolatileAcidity:    *r.VolatileAcidity,
		CitricAcid:         *r.CitricAcid,
		ResidualSugar:      *r.ResidualSugar,
		Chlorides:          *r.Chlorides,
		FreeSulfurDioxide:  *r.FreeSulfurDioxide,
		TotalSulfurDioxide: *r.TotalSulfurDioxide,
		Density:            *r.Density,
		PH:                 *r.PH,
		Sulphates:          *r.Sulphates,
		Alcohol:            *r.Alcohol,
	}
}

type predictResponse struct {
	Name        string `json:"name"`
	RollNo      string `json:"roll_no"`
	WineQuality int    `json:"wine_quality"`
}

// fieldError is one entry of a 422 response body.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationError struct {
	Detail []fieldError `json:"detail"`
}

func (e *validationError) Error() string {
	parts := make([]string, len(e.Detail))
	for i, d := range e.Detail {
		parts[i] = strings.Join(d.Loc, ".") + ": " + d.Msg
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func bodyError(msg, typ string, field ...string) *validationError {
	return &validationError{Detail: []fieldError{{
		Loc:  append([]string{"body"}, field...),
		Msg:  msg,
		Type: typ,
	}}}
}

var errPredictionFailed = errors.New("prediction failed")

// predictor is the request pipeline shared by the HTTP and WebSocket
// endpoints: decode, validate, assemble the feature vector, score, round.
type predictor struct {
	model    ml.Regressor
	validate *validator.Validate
	name     string
	rollNo   string
}

func newPredictor(model ml.Regressor, name, rollNo string) *predictor {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &predictor{model: model, validate: validate, name: name, rollNo: rollNo}
}

// fields returns pointers to the request fields in ml.FeatureNames order.
func (r *predictRequest) fields() []**float64 {
	return []**float64{
		&r.FixedAcidity,
		&r.VolatileAcidity,
		&r.CitricAcid,
		&r.ResidualSugar,
		&r.Chlorides,
		&r.FreeSulfurDioxide,
		&r.TotalSulfurDioxide,
		&r.Density,
		&r.PH,
		&r.Sulphates,
		&r.Alcohol,
	}
}

// decode reads exactly one JSON object. Field names match case sensitively
// and unknown keys are ignored. Oversized bodies surface as
// *http.MaxBytesError, everything else the client got wrong as
// *validationError.
func (p *predictor) decode(body io.Reader) (predictRequest, error) {
	var req predictRequest
	var raw map[string]json.RawMessage

	dec := json.NewDecoder(body)
	if err := dec.Decode(&raw); err != nil {
		return req, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return req, err
		}
		return req, bodyError("invalid JSON", "value_error.jsondecode")
	}

	var invalid validationError
	targets := req.fields()
	for i, name := range ml.FeatureNames() {
		value, ok := raw[name]
		if !ok {
			continue
		}
		parsed, valid := parseFloatField(value)
		if !valid {
			invalid.Detail = append(invalid.Detail, fieldError{
				Loc:  []string{"body", name},
				Msg:  "value is not a valid float",
				Type: "type_error.float",
			})
			continue
		}
		*targets[i] = parsed
	}
	if len(invalid.Detail) > 0 {
		return req, &invalid
	}

	if err := p.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return req, err
		}
		ve := &validationError{Detail: make([]fieldError, 0, len(fieldErrs))}
		for _, fe := range fieldErrs {
			ve.Detail = append(ve.Detail, fieldError{
				Loc:  []string{"body", fe.Field()},
				Msg:  "field required",
				Type: "value_error.missing",
			})
		}
		return req, ve
	}
	return req, nil
}

func decodeError(err error) error {
	var maxBytes *http.MaxBytesError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &maxBytes):
		return err
	case errors.Is(err, io.EOF):
		return bodyError("field required", "value_error.missing")
	case errors.As(err, &typeErr):
		return bodyError("value is not a valid object", "type_error.dict")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return bodyError("invalid JSON", "value_error.jsondecode")
	default:
		return bodyError(err.Error(), "value_error")
	}
}

// parseFloatField accepts a JSON number or a string holding one, as pydantic
// does. null yields nil so the required check reports the field as missing.
// Non-finite values are rejected.
func parseFloatField(value json.RawMessage) (*float64, bool) {
	var number float64
	switch trimmed := bytes.TrimSpace(value); {
	case bytes.Equal(trimmed, []byte("null")):
		return nil, true
	case len(trimmed) > 0 && trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return nil, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return nil, false
		}
		number = parsed
	default:
		if err := json.Unmarshal(trimmed, &number); err != nil {
			return nil, false
		}
	}
	if math.IsNaN(number) || math.IsInf(number, 0) {
		return nil, false
	}
	return &number, true
}

// predict scores a validated request. Halfway scores round to the even
// integer. Model failures are wrapped in errPredictionFailed.
func (p *predictor) predict(req predictRequest) (predictResponse, error) {
	score, err := p.model.Predict(ml.FeatureVector(req.sample()))
	if err != nil {
		return predictResponse{}, fmt.Errorf("%w: %w", errPredictionFailed, err)
	}
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return predictResponse{}, fmt.Errorf("%w: non-finite score %v", errPredictionFailed, score)
	}
	return predictResponse{
		Name:        p.name,
		RollNo:      p.rollNo,
		WineQuality: int(math.RoundToEven(score)),
	}, nil
}
