package checkout

import "github.com/dukerupert/rollcall/internal/store"

// Method selects how checkout codes reach guardians.
type Method string

const (
	MethodQR    Method = "qr"
	MethodLabel Method = "label"
	MethodBoth  Method = "both"
)

// Settings is an immutable snapshot of the checkout policy, read once per
// request and passed into Authorize. The core holds no ambient mutable state.
type Settings struct {
	RequireCode       bool
	CodeMethod        Method
	OverridePassword  string
	DeveloperPassword string
}

// WantsQR reports whether check-in should issue a share link for QR display.
func (s Settings) WantsQR() bool {
	return s.CodeMethod == MethodQR || s.CodeMethod == MethodBoth
}

// WantsLabel reports whether check-in responses should carry label data.
func (s Settings) WantsLabel() bool {
	return s.CodeMethod == MethodLabel || s.CodeMethod == MethodBoth
}

// LoadSettings reads the checkout policy from the settings store. The
// developer password comes from the environment, not the database, and is
// empty when the bypass is disabled.
func LoadSettings(ss *store.SettingsStore, developerPassword string) (Settings, error) {
	values, err := ss.GetCheckoutSettings()
	if err != nil {
		return Settings{}, err
	}

	method := Method(values["checkout_code_method"])
	switch method {
	case MethodQR, MethodLabel, MethodBoth:
	default:
		method = MethodQR
	}

	return Settings{
		RequireCode:       values["require_checkout_code"] == "true",
		CodeMethod:        method,
		OverridePassword:  values["admin_override_password"],
		DeveloperPassword: developerPassword,
	}, nil
}
