package errors

import (
	"strings"
	"testing"
)

func TestValidateModuleName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid slug", "puppetlabs-stdlib", false},
		{"valid owner/name", "puppetlabs/stdlib", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 257), true},
		{"control character", "pup\x01lib", true},
		{"path traversal", "../etc/passwd", true},
		{"double slash", "owner//name", true},
		{"backslash", "owner\\name", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModuleName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModuleName(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateModuleSlug(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "puppetlabs-stdlib", false},
		{"valid with underscore", "puppetlabs-apt_backports", false},
		{"unnormalized separator", "puppetlabs/stdlib", true},
		{"uppercase", "Puppetlabs-stdlib", true},
		{"missing owner", "stdlib", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModuleSlug(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModuleSlug(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidModule) {
				t.Errorf("error code = %q, want %q", GetCode(err), ErrCodeInvalidModule)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://forgeapi.puppet.com", false},
		{"http", "http://localhost:8080", false},
		{"empty", "", true},
		{"file scheme", "file:///etc/passwd", true},
		{"no scheme", "forgeapi.puppet.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateConstraint(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"bare version", "1.2.3", false},
		{"operator", ">= 1.2.3", false},
		{"range", ">= 4.0.0 < 9.0.0", false},
		{"pessimistic", "~> 1.2", false},
		{"wildcard", "1.x", false},
		{"empty", "", true},
		{"garbage", "latest && greatest", true},
		{"too long", ">= " + strings.Repeat("1", 130), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConstraint(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConstraint(%q) = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
