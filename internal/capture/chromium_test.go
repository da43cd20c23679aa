package capture

import (
	"context"
	"testing"
	"time"
)

func TestPrintOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    PrintOptions
		wantErr bool
	}{
		{"missing url", PrintOptions{OutputPath: "/tmp/x.pdf"}, true},
		{"missing output", PrintOptions{URL: "http://127.0.0.1/print"}, true},
		{"ok", PrintOptions{URL: "http://127.0.0.1/print", OutputPath: "/tmp/x.pdf"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := tt.opts
			err := o.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && o.Timeout != DefaultTimeoutSec*time.Second {
				t.Errorf("Timeout = %v, want default", o.Timeout)
			}
		})
	}
}

func TestPrintPDF_RejectsBadOptions(t *testing.T) {
	// must fail before any browser is launched
	if err := PrintPDF(context.Background(), PrintOptions{}); err == nil {
		t.Error("expected error for empty options")
	}
}
