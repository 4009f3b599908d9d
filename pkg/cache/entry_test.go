package cache

import (
	"errors"
	"testing"
	"time"
)

func TestEntry_Validator(t *testing.T) {
	e := &Entry{ETag: `W/"abc"`, LastModified: "Mon, 01 Jan 2024 00:00:00 GMT"}
	v := e.Validator()
	if v.ETag != `W/"abc"` {
		t.Errorf("ETag = %q", v.ETag)
	}
	if v.LastModified != "Mon, 01 Jan 2024 00:00:00 GMT" {
		t.Errorf("LastModified = %q", v.LastModified)
	}

	if !(&Entry{}).Validator().IsZero() {
		t.Error("empty entry should have a zero validator")
	}
}

func TestEntry_Resource(t *testing.T) {
	e := &Entry{
		Key:     "wanikani:subjects/1",
		URL:     "https://api.wanikani.com/v2/subjects/1",
		Payload: []byte(`{"id":1,"object":"radical","url":"https://api.wanikani.com/v2/subjects/1","data_updated_at":"2024-01-01T00:00:00Z","data":{"level":1}}`),
	}
	res, err := e.Resource()
	if err != nil {
		t.Fatalf("Resource() error = %v", err)
	}
	if res.ID != 1 || res.Object != "radical" {
		t.Errorf("Resource() = %+v", res)
	}
}

func TestEncodeDecodeEntry(t *testing.T) {
	in := &Entry{
		Key:       "wanikani:user",
		URL:       "https://api.wanikani.com/v2/user",
		Payload:   []byte(`{"object":"user","data":{"level":5}}`),
		ETag:      `W/"v1"`,
		FetchedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := encodeEntry(in)
	if err != nil {
		t.Fatalf("encodeEntry() error = %v", err)
	}
	out, err := decodeEntry(data)
	if err != nil {
		t.Fatalf("decodeEntry() error = %v", err)
	}
	if string(out.Payload) != string(in.Payload) {
		t.Errorf("Payload = %s, want %s", out.Payload, in.Payload)
	}
	if !out.FetchedAt.Equal(in.FetchedAt) {
		t.Errorf("FetchedAt = %v, want %v", out.FetchedAt, in.FetchedAt)
	}
}

func TestDecodeEntry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `garbage`},
		{"missing key", `{"url":"u","payload":{"object":"user"}}`},
		{"missing payload", `{"key":"wanikani:user","url":"u"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEntry([]byte(tt.data))
			if !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("decodeEntry() error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}

func TestEncodeEntry_Nil(t *testing.T) {
	if _, err := encodeEntry(nil); err == nil {
		t.Error("encodeEntry(nil) should fail")
	}
}
