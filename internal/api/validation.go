package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aadarsh2904/GoQunat-Project/pkg/model"
)

// TierChecker reports whether a fee tier is configured.
type TierChecker interface {
	Has(tier string) bool
}

// Validator turns raw request bodies into normalized model.QuoteRequest
// values. It has no side effects and is safe for concurrent use.
type Validator struct {
	v     *validator.Validate
	tiers TierChecker
}

// NewValidator checks fee tiers against tiers; a nil tiers skips that check.
func NewValidator(tiers TierChecker) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v, tiers: tiers}
}

// Parse decodes, validates and normalizes body.
func (v *Validator) Parse(body []byte) (model.QuoteRequest, error) {
	req, err := DecodeEstimateRequest(body)
	if err != nil {
		return model.QuoteRequest{}, err
	}
	return v.Validate(req)
}

// DecodeEstimateRequest decodes body strictly: unknown fields, type mismatches
// and trailing data are all InvalidInput.
func DecodeEstimateRequest(body []byte) (EstimateRequest, error) {
	var req EstimateRequest
	if len(bytes.TrimSpace(body)) == 0 {
		return req, model.NewInvalidInput("", "request body is required")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return req, decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return req, model.NewInvalidInput("", "request body must contain a single JSON object")
	}
	return req, nil
}

func decodeError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return model.NewInvalidInput("", fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset))
	case errors.As(err, &typeErr) && typeErr.Field == "":
		return model.NewInvalidInput("", "request body must be a JSON object")
	case errors.As(err, &typeErr):
		return model.NewInvalidInput(typeErr.Field, fmt.Sprintf("must be a %s, got %s", jsonKind(typeErr.Type), typeErr.Value))
	case errors.Is(err, io.ErrUnexpectedEOF):
		return model.NewInvalidInput("", "malformed JSON: unexpected end of input")
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return model.NewInvalidInput(field, "is not a recognized field")
	}
	return model.NewInvalidInput("", err.Error())
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "number"
	case reflect.String:
		return "string"
	}
	return t.String()
}

// Validate applies field rules, checks the fee tier and normalizes req.
func (v *Validator) Validate(req EstimateRequest) (model.QuoteRequest, error) {
	req.OrderType = lower(req.OrderType)
	req.Side = lower(req.Side)
	req.QuantityUnit = lower(req.QuantityUnit)
	req.Exchange = strings.TrimSpace(req.Exchange)
	req.SpotAsset = strings.TrimSpace(req.SpotAsset)
	req.FeeTier = strings.TrimSpace(req.FeeTier)

	if err := v.v.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return model.QuoteRequest{}, fieldError(verrs[0])
		}
		return model.QuoteRequest{}, model.NewInvalidInput("", err.Error())
	}

	if req.LimitPrice != nil && req.OrderType != string(model.OrderTypeLimit) {
		return model.QuoteRequest{}, model.NewInvalidInput("limitPrice", "is only allowed with orderType 'limit'")
	}
	if v.tiers != nil && !v.tiers.Has(req.FeeTier) {
		return model.QuoteRequest{}, model.NewInvalidInput("feeTier", fmt.Sprintf("unknown tier %q", req.FeeTier))
	}

	out := model.QuoteRequest{
		Venue:        model.NormalizeVenue(req.Exchange),
		Symbol:       model.NormalizeSymbol(req.SpotAsset),
		OrderType:    model.OrderType(req.OrderType),
		Side:         model.SideBuy,
		Quantity:     *req.Quantity,
		QuantityUnit: model.UnitQuote,
		Volatility:   *req.Volatility,
		FeeTier:      req.FeeTier,
	}
	if req.Side != "" {
		out.Side = model.Side(req.Side)
	}
	if req.QuantityUnit != "" {
		out.QuantityUnit = model.QuantityUnit(req.QuantityUnit)
	}
	if req.LimitPrice != nil {
		out.LimitPrice = *req.LimitPrice
	}
	return out, out.Validate()
}

func fieldError(fe validator.FieldError) error {
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "oneof":
		reason = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "gte":
		reason = "must be greater than or equal to " + fe.Param()
	default:
		reason = "failed rule " + fe.Tag()
	}
	return model.NewInvalidInput(fe.Field(), reason)
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
