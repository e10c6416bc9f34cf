package delivery

import (
	"net/url"
	"strings"

	twilioclient "github.com/twilio/twilio-go/client"
)

// VerifySignature checks an X-Twilio-Signature header against the callback URL and form
// params. Status callbacks carry one value per key; only the first value of each is signed.
func VerifySignature(authToken, callbackURL string, params url.Values, signature string) bool {
	signature = strings.TrimSpace(signature)
	if authToken == "" || signature == "" {
		return false
	}
	validator := twilioclient.NewRequestValidator(authToken)
	return validator.Validate(callbackURL, firstValues(params), signature)
}

func firstValues(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
