package output

import (
	"encoding/json"

	"github.com/layerprompt/layerprompt/internal/core/engine"
	"github.com/layerprompt/layerprompt/internal/core/profile"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatResolution renders a resolution as JSON.
func (f *JSONFormatter) FormatResolution(res engine.Resolution) (string, error) {
	return f.marshal(res)
}

// FormatProfiles renders profiles as a JSON array.
func (f *JSONFormatter) FormatProfiles(profiles []profile.Profile) (string, error) {
	if profiles == nil {
		profiles = []profile.Profile{}
	}
	return f.marshal(profiles)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
