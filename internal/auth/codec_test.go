package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestCodec(t *testing.T, opts ...CodecOption) *Codec {
	t.Helper()
	codec, err := NewCodec([]byte("test-secret"), opts...)
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return codec
}

func TestCodecRoundTrip(t *testing.T) {
	codec := newTestCodec(t)

	token, issued, err := codec.Encode("user-1", TokenAccess, 15*time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if issued.ID == "" {
		t.Fatal("expected a jti on every issued token")
	}

	claims, err := codec.Decode(token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.TokenType != TokenAccess {
		t.Fatalf("unexpected token type %q", claims.TokenType)
	}
	if claims.ID != issued.ID {
		t.Fatalf("jti changed across the round trip: %q vs %q", claims.ID, issued.ID)
	}
}

func TestCodecRejectsExpired(t *testing.T) {
	now := time.Now()
	codec := newTestCodec(t, WithCodecClock(func() time.Time { return now }))

	token, _, err := codec.Encode("user-1", TokenAccess, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Advance the clock past expiry; no leeway is granted.
	now = now.Add(2 * time.Minute)
	if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

func TestCodecRejectsNegativeTTL(t *testing.T) {
	codec := newTestCodec(t)
	if _, _, err := codec.Encode("user-1", TokenAccess, -time.Minute); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}

func TestCodecRejectsTampering(t *testing.T) {
	codec := newTestCodec(t)
	token, _, err := codec.Encode("user-1", TokenAccess, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if _, err := codec.Decode(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for tampered signature, got %v", err)
	}
}

func TestCodecRejectsForeignSecret(t *testing.T) {
	codec := newTestCodec(t)
	other, err := NewCodec([]byte("another-secret"))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	token, _, err := other.Encode("user-1", TokenAccess, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
}

func TestCodecRejectsGarbage(t *testing.T) {
	codec := newTestCodec(t)
	for _, token := range []string{"", "   ", "garbage", "a.b", "a.b.c.d", "!!!.@@@.###"} {
		if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Decode(%q): expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestCodecRejectsWrongIssuer(t *testing.T) {
	codec := newTestCodec(t)
	foreign := newTestCodec(t, WithCodecIssuer("someone-else"))

	token, _, err := foreign.Encode("user-1", TokenAccess, time.Minute)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}
