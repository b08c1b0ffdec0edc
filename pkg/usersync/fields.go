package usersync

import "github.com/shopspring/decimal"

// SerializeFields returns a copy of fields with every arbitrary-precision
// decimal converted to its exact string representation. Decimals must never
// cross the wire as floats; the string form survives the JSON boundary to
// the remote store without precision loss. All other values pass through
// unchanged.
func SerializeFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for key, value := range fields {
		switch v := value.(type) {
		case decimal.Decimal:
			out[key] = v.String()
		case *decimal.Decimal:
			if v != nil {
				out[key] = v.String()
			} else {
				out[key] = nil
			}
		default:
			out[key] = value
		}
	}
	return out
}
