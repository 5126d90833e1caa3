// ABOUTME: Tests for activity classification precedence
// ABOUTME: Explicit code > body keywords > source hint > raw type > default
package normalize

import "testing"

func TestExplicitTypeCodeWins(t *testing.T) {
	// An explicit code beats body keywords that would say otherwise.
	got := ClassifyActivity(ActivityInput{
		TypeCode: "WHATS_APP",
		Body:     "connected on linkedin yesterday",
		Default:  TypeNote,
	})
	if got != TypeWhatsApp {
		t.Errorf("Expected %s, got %s", TypeWhatsApp, got)
	}
}

func TestTypeCodeCaseInsensitive(t *testing.T) {
	got := ClassifyActivity(ActivityInput{TypeCode: "linkedin_message", Default: TypeNote})
	if got != TypeLinkedInMessage {
		t.Errorf("Expected %s, got %s", TypeLinkedInMessage, got)
	}
}

func TestBodyKeywordsBeatSource(t *testing.T) {
	got := ClassifyActivity(ActivityInput{
		Body:    "Follow-up sent via WhatsApp this morning",
		Source:  "linkedin importer",
		Default: TypeNote,
	})
	if got != TypeWhatsApp {
		t.Errorf("Expected %s from body scan, got %s", TypeWhatsApp, got)
	}
}

func TestBodyKeywordOrder(t *testing.T) {
	// "linkedin" is checked before "sms"; a body mentioning both classifies
	// as LinkedIn. Fixed order is a compatibility invariant.
	got := ClassifyActivity(ActivityInput{
		Body:    "moved the sms thread over to LinkedIn",
		Default: TypeNote,
	})
	if got != TypeLinkedInMessage {
		t.Errorf("Expected %s, got %s", TypeLinkedInMessage, got)
	}
}

func TestSourceHintUsedWhenBodySilent(t *testing.T) {
	got := ClassifyActivity(ActivityInput{
		Body:    "quick check-in",
		Source:  "WhatsApp Business",
		Default: TypeNote,
	})
	if got != TypeWhatsApp {
		t.Errorf("Expected %s from source hint, got %s", TypeWhatsApp, got)
	}
}

func TestUnknownCodeKeptAsRawType(t *testing.T) {
	got := ClassifyActivity(ActivityInput{TypeCode: "CARRIER_PIGEON", Default: TypeNote})
	if got != "CARRIER_PIGEON" {
		t.Errorf("Expected raw type preserved, got %s", got)
	}
}

func TestDefaultFallback(t *testing.T) {
	got := ClassifyActivity(ActivityInput{Body: "routine summary", Default: TypeMeeting})
	if got != TypeMeeting {
		t.Errorf("Expected default %s, got %s", TypeMeeting, got)
	}
}

func TestEmailDirectionCodes(t *testing.T) {
	for code, want := range map[string]string{
		"INCOMING_EMAIL":  TypeIncomingEmail,
		"FORWARDED_EMAIL": TypeForwardedEmail,
		"EMAIL":           TypeEmail,
	} {
		if got := ClassifyActivity(ActivityInput{TypeCode: code, Default: TypeEmail}); got != want {
			t.Errorf("code %s: expected %s, got %s", code, want, got)
		}
	}
}
