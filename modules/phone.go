package modules

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/corrosiverage/corrosive/core"
)

// NumverifyURL is the apilayer validation endpoint.
const NumverifyURL = "http://apilayer.net/api/validate"

// PhoneRecon validates a phone number with Numverify.
type PhoneRecon struct {
	Endpoint string
}

func NewPhoneRecon() *PhoneRecon { return &PhoneRecon{Endpoint: NumverifyURL} }

func (m *PhoneRecon) Name() string { return "phone_recon" }

func (m *PhoneRecon) Description() string {
	return "Validates a phone number and reports carrier and location (Numverify)"
}

func (m *PhoneRecon) Services() []string { return []string{"numverify"} }

type numverifyResponse struct {
	Valid               bool   `json:"valid"`
	Number              string `json:"number"`
	InternationalFormat string `json:"international_format"`
	CountryName         string `json:"country_name"`
	Location            string `json:"location"`
	Carrier             string `json:"carrier"`
	LineType            string `json:"line_type"`
	Success             *bool  `json:"success"`
	Error               *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

func (m *PhoneRecon) Run(ctx context.Context, rc *core.Context) (*core.Result, error) {
	number := strings.TrimSpace(rc.Target)
	rc.Log.Infof("Starting phone investigation for %s", number)

	key, ok := rc.RequireKey("numverify", "Numverify")
	if !ok {
		return rc.Result(), nil
	}

	params := url.Values{}
	params.Set("access_key", key)
	params.Set("number", strings.TrimPrefix(number, "+"))
	resp, err := rc.HTTP.Fetch(ctx, m.Endpoint+"?"+params.Encode())
	if err != nil {
		rc.AddError(map[string]any{"message": "Failed to query Numverify API: " + err.Error()})
		return rc.Result(), nil
	}

	var info numverifyResponse
	if err := resp.JSON(&info); err != nil {
		rc.AddError(map[string]any{"message": "Failed to query Numverify API: " + err.Error()})
		return rc.Result(), nil
	}
	// apilayer answers 200 with success=false on bad keys or quota exhaustion
	if info.Success != nil && !*info.Success && info.Error != nil {
		rc.AddError(map[string]any{
			"message": fmt.Sprintf("Failed to query Numverify API: %s (%d)", info.Error.Info, info.Error.Code),
		})
		return rc.Result(), nil
	}

	if !info.Valid {
		rc.Log.Infof("Phone number %s is invalid or unknown", number)
		rc.AddFinding("invalid_phone", map[string]any{
			"phone_number": number,
			"message":      "The phone number is invalid or no data was found.",
		})
		return rc.Result(), nil
	}

	rc.AddFinding("phone_info", map[string]any{
		"phone_number": info.InternationalFormat,
		"country":      info.CountryName,
		"location":     info.Location,
		"carrier":      info.Carrier,
		"line_type":    info.LineType,
		"is_valid":     info.Valid,
	})
	return rc.Result(), nil
}
