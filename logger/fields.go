package logger

// Standard field key constants for structured logging. Credential material
// (passwords, token bodies) never appears under any of these keys.
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClient    = "client"
	FieldUser      = "user"
	FieldPath      = "path"
	FieldRule      = "rule"
	FieldMode      = "mode"
	FieldStatus    = "status"
	FieldError     = "error"
)

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	log.Info("denied", logger.Fields(logger.FieldPath, "/admin", logger.FieldStatus, 403))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}
