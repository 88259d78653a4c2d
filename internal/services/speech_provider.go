package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/ComplianceRelish/lexassist-backend/internal/logger"
)

// SpeechProviderService turns dictated audio into brief text. The
// confidence metadata travels with the transcript so the client can offer
// corrections; the orchestrator itself treats the text as typed input.
type SpeechProviderService interface {
	TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (*TranscriptionResult, error)
	Close() error
}

type TranscriptionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

type speechProviderService struct {
	log      *logger.Logger
	client   *speech.Client
	language string
}

func NewSpeechProviderService(ctx context.Context, baseLog *logger.Logger) (SpeechProviderService, error) {
	var opts []option.ClientOption
	if creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}

	language := os.Getenv("SPEECH_LANGUAGE_CODE")
	if language == "" {
		language = "en-IN"
	}

	return &speechProviderService{
		log:      baseLog.With("service", "SpeechProviderService"),
		client:   client,
		language: language,
	}, nil
}

func encodingForMime(mimeType string) speechpb.RecognitionConfig_AudioEncoding {
	switch {
	case strings.Contains(mimeType, "wav"), strings.Contains(mimeType, "x-wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(mimeType, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(mimeType, "ogg"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(mimeType, "webm"):
		return speechpb.RecognitionConfig_WEBM_OPUS
	case strings.Contains(mimeType, "mp3"), strings.Contains(mimeType, "mpeg"):
		return speechpb.RecognitionConfig_MP3
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func (s *speechProviderService) TranscribeAudio(ctx context.Context, audio []byte, mimeType string) (*TranscriptionResult, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio")
	}

	resp, err := s.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   encodingForMime(mimeType),
			LanguageCode:               s.language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("speech recognize: %w", err)
	}

	var sb strings.Builder
	var confSum float64
	var confCount int
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		best := alts[0]
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(strings.TrimSpace(best.GetTranscript()))
		confSum += float64(best.GetConfidence())
		confCount++
	}
	if sb.Len() == 0 {
		return nil, fmt.Errorf("no speech recognized")
	}

	out := &TranscriptionResult{
		Text:     sb.String(),
		Language: s.language,
	}
	if confCount > 0 {
		out.Confidence = confSum / float64(confCount)
	}
	s.log.Debug("transcription complete", "chars", len(out.Text), "confidence", out.Confidence)
	return out, nil
}

func (s *speechProviderService) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
