package feed

import (
	"encoding/base64"
	"testing"

	"DProject/tools/errs"
)

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{TS: 1724900000123, ID: "7345678901234567890", Dir: DirNext}
	token := in.Encode()

	out, err := DecodeCursor(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.TS != in.TS || out.ID != in.ID || out.Dir != in.Dir {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
	if out.V != cursorVersion {
		t.Fatalf("version = %d, want %d", out.V, cursorVersion)
	}
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not base64":  "%%%%",
		"not json":    base64.RawURLEncoding.EncodeToString([]byte("hello")),
		"bad version": base64.RawURLEncoding.EncodeToString([]byte(`{"v":99,"ts":1,"id":"1","dir":"next"}`)),
		"bad dir":     base64.RawURLEncoding.EncodeToString([]byte(`{"v":1,"ts":1,"id":"1","dir":"sideways"}`)),
	}
	for name, token := range cases {
		_, err := DecodeCursor(token)
		if err == nil {
			t.Errorf("%s: expected error", name)
			continue
		}
		if errs.Code(err) != errs.CursorError {
			t.Errorf("%s: code = %d, want CursorError", name, errs.Code(err))
		}
	}
}
