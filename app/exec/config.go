package exec

type Config struct {
	// Script is the script path relative to the scripts root.
	Script string `conf:"script"`

	// Method is the method of the request handed to the script.
	Method string `conf:"method"`

	// Path is the path of the request. It defaults to /js/<script>.
	Path string `conf:"path"`

	// Body is the body of the request.
	Body string `conf:"body"`

	// Header holds request headers in the form "Name: value".
	Header []string `conf:"header"`
}
