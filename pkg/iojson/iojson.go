// iojson holds the JSON input/output conventions shared by the CLI
// commands: pretty-printed results on stdout, structured errors on
// stderr.
package iojson

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Error is the shape every command error takes on stderr.
type Error struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func fallbackError(msg string, marshalErr error) string {
	// json.Marshal the strings individually so escaping stays correct
	// even when the full struct could not be marshaled.
	msgBytes, _ := json.Marshal(msg)
	errBytes, _ := json.Marshal(marshalErr.Error())
	return fmt.Sprintf(`{"message":%s,"data":{"json_error":%s}}`, msgBytes, errBytes)
}

// MarshalError renders an Error as indented JSON. If marshaling itself
// fails, which indicates a bug, it falls back to a hand-built blob that
// still carries the message.
func MarshalError(msg string, data map[string]any) string {
	bits, err := json.MarshalIndent(Error{Message: msg, Data: data}, "", "  ")
	if err != nil {
		return fallbackError(msg, err)
	}
	return string(bits)
}

// WriteError prints a structured error to stderr.
func WriteError(msg string, data map[string]any) error {
	_, err := fmt.Fprintln(os.Stderr, MarshalError(msg, data))
	return err
}

// WriteWith marshals obj as indented JSON to w, reporting marshal
// failures to ew in the standard error shape.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		_, err = fmt.Fprintln(ew, fallbackError("error marshaling in iojson.WriteWith", err))
		return err
	}

	_, err = fmt.Fprintln(w, string(bits))
	return err
}

// Write calls WriteWith with [os.Stdout] and [os.Stderr].
func Write(obj any) error {
	return WriteWith(os.Stdout, os.Stderr, obj)
}
