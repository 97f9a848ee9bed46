package wire

import (
	"errors"
	"testing"
)

func TestDecodeChunkedRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"single chunk", "5\r\nhello\r\n0\r\n\r\n", "hello"},
		{"multiple chunks", "4\r\nWiki\r\n5\r\npedia\r\n0\r\n\r\n", "Wikipedia"},
		{"empty body", "0\r\n\r\n", ""},
		{"chunk extension ignored", "5;foo=bar\r\nhello\r\n0\r\n\r\n", "hello"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, consumed, err := decodeChunked([]byte(tc.in), 0)
			if err != nil {
				t.Fatalf("decodeChunked failed: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("body = %q, want %q", got, tc.want)
			}
			if consumed != len(tc.in) {
				t.Fatalf("consumed = %d, want %d", consumed, len(tc.in))
			}
		})
	}
}

func TestDecodeChunkedNeedsMoreMidChunk(t *testing.T) {
	_, _, err := decodeChunked([]byte("5\r\nhel"), 0)
	if !errors.Is(err, ErrNeedMore) {
		t.Fatalf("err = %v, want ErrNeedMore", err)
	}
}

func TestDecodeChunkedNeedsMoreMidSizeLine(t *testing.T) {
	_, _, err := decodeChunked([]byte("5"), 0)
	if !errors.Is(err, ErrNeedMore) {
		t.Fatalf("err = %v, want ErrNeedMore", err)
	}
}

func TestDecodeChunkedRejectsBadSize(t *testing.T) {
	_, _, err := decodeChunked([]byte("zz\r\nhello\r\n0\r\n\r\n"), 0)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
}

func TestDecodeChunkedEnforcesMaxBodySize(t *testing.T) {
	_, _, err := decodeChunked([]byte("5\r\nhello\r\n0\r\n\r\n"), 4)
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Kind != KindTooLarge {
		t.Fatalf("err = %v, want KindTooLarge", err)
	}
}
