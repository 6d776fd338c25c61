package berlinzms

// Codes d'erreur stables, repris dans les logs.
const (
	CodeInvalidTarget = "invalid_target"
	CodeNetwork       = "network_error"
	CodeTimeout       = "timeout"
	CodeHTTPStatus    = "http_status"
	CodeParse         = "parse_error"
)

// FetchError permet au fetcher de renvoyer un code d'erreur stable.
type FetchError struct {
	Code    string
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }
