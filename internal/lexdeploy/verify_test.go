package lexdeploy

import (
	"errors"
	"testing"
)

func TestVerifyBotConfig(t *testing.T) {
	tests := []struct {
		name    string
		intents []IntentSpec
		wantErr string
	}{
		{
			name: "unique",
			intents: []IntentSpec{
				{Name: "Greet", Utterances: []string{"hello", "hi"}},
				{Name: "Bye", Utterances: []string{"goodbye"}},
			},
		},
		{
			name: "duplicate intent name ignoring case",
			intents: []IntentSpec{
				{Name: "Greet", Utterances: []string{"hello"}},
				{Name: "GREET", Utterances: []string{"hi"}},
			},
			wantErr: "duplicate intent name found: GREET",
		},
		{
			name: "duplicate utterance within one intent",
			intents: []IntentSpec{
				{Name: "Greet", Utterances: []string{"hello", "Hello"}},
			},
			wantErr: "duplicate utterance found: Hello on intent: Greet",
		},
		{
			name: "duplicate utterance across intents",
			intents: []IntentSpec{
				{Name: "Greet", Utterances: []string{"hello"}},
				{Name: "Bye", Utterances: []string{"bye", "HELLO"}},
			},
			wantErr: "duplicate utterance found: HELLO on intent: Bye",
		},
		{
			name: "first collision wins",
			intents: []IntentSpec{
				{Name: "Greet", Utterances: []string{"hello"}},
				{Name: "greet", Utterances: []string{"hello"}},
			},
			wantErr: "duplicate intent name found: greet",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := VerifyBotConfig(&BotConfig{Intents: tt.intents})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrDuplicateDefinition) {
				t.Fatalf("err = %v, want ErrDuplicateDefinition", err)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err is %T, want *ValidationError", err)
			}
			if len(ve.Problems) != 1 || ve.Problems[0] != tt.wantErr {
				t.Errorf("Problems = %q, want [%q]", ve.Problems, tt.wantErr)
			}
		})
	}
}
