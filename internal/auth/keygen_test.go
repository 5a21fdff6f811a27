package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		env        string
		wantPrefix string
	}{
		{"live", EnvLive, "bb_live_"},
		{"test", EnvTest, "bb_test_"},
		{"unknown defaults to live", "staging", "bb_live_"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			key, err := GenerateAPIKey(tt.env)
			if err != nil {
				t.Fatalf("GenerateAPIKey failed: %v", err)
			}

			if !strings.HasPrefix(key.Plaintext, tt.wantPrefix) {
				t.Errorf("Key should start with %s, got: %s", tt.wantPrefix, key.Plaintext)
			}
			if len(key.Prefix) != KeyPrefixLen {
				t.Errorf("Prefix should be %d chars, got: %d", KeyPrefixLen, len(key.Prefix))
			}

			parsed, err := ParseAPIKey(key.Plaintext)
			if err != nil {
				t.Fatalf("generated key does not parse: %v", err)
			}
			if parsed.Prefix != key.Prefix {
				t.Errorf("parsed prefix = %s, want %s", parsed.Prefix, key.Prefix)
			}

			ok, err := VerifyKey(key.Plaintext, key.Hash)
			if err != nil || !ok {
				t.Errorf("generated hash does not verify: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestGenerateAPIKey_UniqueSecrets(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		key, err := GenerateAPIKey(EnvTest)
		if err != nil {
			t.Fatalf("GenerateAPIKey failed: %v", err)
		}
		if seen[key.Plaintext] {
			t.Fatalf("duplicate key generated: %s", key.Plaintext)
		}
		seen[key.Plaintext] = true
	}
}

func TestParseAPIKey(t *testing.T) {
	t.Parallel()

	secret := strings.Repeat("ab", 16)

	tests := []struct {
		name    string
		key     string
		want    *ParsedKey
		wantErr bool
	}{
		{"valid live", "bb_live_a1b2c3_" + secret, &ParsedKey{Env: "live", Prefix: "a1b2c3", Secret: secret}, false},
		{"valid test", "bb_test_000000_" + secret, &ParsedKey{Env: "test", Prefix: "000000", Secret: secret}, false},
		{"unknown env", "bb_prod_a1b2c3_" + secret, nil, true},
		{"wrong scheme", "pk_live_a1b2c3_" + secret, nil, true},
		{"uppercase hex", "bb_live_A1B2C3_" + secret, nil, true},
		{"short prefix", "bb_live_a1b2c_" + secret, nil, true},
		{"short secret", "bb_live_a1b2c3_" + secret[:30], nil, true},
		{"empty", "", nil, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseAPIKey(tt.key)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKeyFormat) {
					t.Errorf("ParseAPIKey() error = %v, want ErrInvalidKeyFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAPIKey() error = %v", err)
			}
			if *got != *tt.want {
				t.Errorf("ParseAPIKey() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
