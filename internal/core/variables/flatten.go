package variables

// Standard keys of the flattened parameter map.
const (
	KeyInputText       = "input_text"
	KeyInputTextFile   = "input_text_file"
	KeyDestinationPath = "destination_path"
	KeySchemaFile      = "schema_file"
	KeyInputSource     = "inputSource"
)

// Flatten combines the standard keys with the custom variables. Custom keys
// are applied last and win on collision.
func Flatten(vars MaterializedVariables) map[string]string {
	out := map[string]string{
		KeyInputText:       vars.InputContent,
		KeyInputTextFile:   vars.InputPath,
		KeyDestinationPath: vars.DestinationPath,
		KeySchemaFile:      vars.SchemaContent,
		KeyInputSource:     string(vars.InputSource),
	}
	for key, value := range vars.Custom {
		out[key] = value
	}
	return out
}
