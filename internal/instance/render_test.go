package instance

import (
	"testing"

	"github.com/juju/errors"
)

func TestRenderLoginCommand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		options  map[string]any
		want     string
	}{
		{
			name:     "ssh",
			template: "ssh {address} -l {user} -p {port} -i {identity_file} -o ControlPath=~/.ansible/cp/%r@%h-%p",
			options: map[string]any{
				"address":       "10.0.0.9",
				"user":          "molecule",
				"port":          22,
				"identity_file": "/tmp/key",
			},
			want: "ssh 10.0.0.9 -l molecule -p 22 -i /tmp/key -o ControlPath=~/.ansible/cp/%r@%h-%p",
		},
		{
			name:     "nil value renders empty",
			template: "launcher rdp {address} {user} {rdp_port} {password}",
			options: map[string]any{
				"address":  "10.0.0.50",
				"user":     "Administrator",
				"rdp_port": 3389,
				"password": nil,
			},
			want: "launcher rdp 10.0.0.50 Administrator 3389 ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderLoginCommand(tt.template, tt.options)
			if err != nil {
				t.Fatalf("RenderLoginCommand() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("RenderLoginCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderLoginCommand_MissingValue(t *testing.T) {
	_, err := RenderLoginCommand("ssh {address} -i {identity_file}", map[string]any{"address": "10.0.0.1"})
	if !errors.Is(err, errors.NotValid) {
		t.Fatalf("RenderLoginCommand() error = %v, want NotValid", err)
	}
	if got, want := err.Error(), "login options have no value for: identity_file"; got != want {
		t.Errorf("RenderLoginCommand() error = %q, want %q", got, want)
	}
}
