package logging

import (
	"log/slog"
	"time"
)

// Common field names for consistent logging across services.
const (
	FieldService        = "service"
	FieldSubscriptionID = "subscription_id"
	FieldObjectKey      = "object_key"
	FieldBucket         = "bucket"
	FieldVehicleRef     = "vehicle_ref"
	FieldLineRef        = "line_ref"
	FieldOperatorRef    = "operator_ref"
	FieldRecordCount    = "record_count"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatus         = "status"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// SubscriptionID returns a slog attribute for the producer subscription ID.
func SubscriptionID(id string) slog.Attr {
	return slog.String(FieldSubscriptionID, id)
}

// ObjectKey returns a slog attribute for a staged payload object key.
func ObjectKey(key string) slog.Attr {
	return slog.String(FieldObjectKey, key)
}

// Bucket returns a slog attribute for an object storage bucket.
func Bucket(name string) slog.Attr {
	return slog.String(FieldBucket, name)
}

// VehicleRef returns a slog attribute for a vehicle reference.
func VehicleRef(ref string) slog.Attr {
	return slog.String(FieldVehicleRef, ref)
}

// RecordCount returns a slog attribute for a batch record count.
func RecordCount(n int) slog.Attr {
	return slog.Int(FieldRecordCount, n)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error.
func Error(err error) slog.Attr {
	return slog.String(FieldError, err.Error())
}
