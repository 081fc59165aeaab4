package logging

import (
	"log/slog"
	"time"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldGallery is the standardized structured logging key for gallery identifiers.
	FieldGallery = "gallery"
	// FieldImage is the standardized structured logging key for source image filenames.
	FieldImage = "image"
	// FieldImageID is the standardized structured logging key for derived image identifiers.
	FieldImageID = "image_id"
	// FieldSizeClass is the standardized structured logging key for rendition size-class names.
	FieldSizeClass = "size_class"
)

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func String(key string, value string) slog.Attr { return slog.String(key, value) }

func Error(err error) slog.Attr { return slog.Any("error", err) }

// WithComponent tags a logger with the component field the console handler
// folds into the message prefix.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(slog.String(FieldComponent, component))
}
