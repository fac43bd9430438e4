package speech

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// GoogleSynthesizer calls the Google Cloud Text-to-Speech API.
type GoogleSynthesizer struct {
	svc *texttospeech.Service
}

// NewGoogleSynthesizer creates a client. With an empty apiKey the
// application default credentials are used.
func NewGoogleSynthesizer(ctx context.Context, apiKey string) (*GoogleSynthesizer, error) {
	var opts []option.ClientOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return &GoogleSynthesizer{svc: svc}, nil
}

// Synthesize implements Synthesizer.
func (g *GoogleSynthesizer) Synthesize(ctx context.Context, text string, voice Voice) ([]byte, error) {
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
			SsmlGender:   voice.Gender,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: voice.Encoding,
			SpeakingRate:  voice.SpeakingRate,
			Pitch:         voice.Pitch,
			VolumeGainDb:  voice.VolumeGainDB,
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	return audio, nil
}
