package models

import "github.com/rovesti/fabrica/internal/domain"

// Pricing below follows published provider rates, rounded. Cost
// functions read the same params the step declares, falling back to
// each model's documented default.

// DefaultRegistry builds the registry with the built-in catalog.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// text_to_image
	r.Register(&Descriptor{
		ID:             "flux-dev",
		Category:       domain.StepTextToImage,
		Provider:       "replicate",
		RequiredParams: []string{"prompt"},
		OptionalParams: []string{"count", "width", "height", "steps", "seed"},
		Default:        true,
		Cost:           perCount(0.025),
	})
	r.Register(&Descriptor{
		ID:             "flux-pro",
		Category:       domain.StepTextToImage,
		Provider:       "replicate",
		RequiredParams: []string{"prompt"},
		OptionalParams: []string{"count", "width", "height", "seed"},
		Cost:           perCount(0.05),
	})
	r.Register(&Descriptor{
		ID:             "sdxl-turbo",
		Category:       domain.StepTextToImage,
		Provider:       "stability",
		RequiredParams: []string{"prompt"},
		OptionalParams: []string{"count", "seed"},
		Cost:           perCount(0.003),
	})

	// image_to_video
	r.Register(&Descriptor{
		ID:             "kling-v1.5",
		Category:       domain.StepImageToVideo,
		Provider:       "kling",
		RequiredParams: []string{"image"},
		OptionalParams: []string{"duration", "prompt", "mode"},
		Default:        true,
		Cost:           perSecond(0.13, 5),
	})
	r.Register(&Descriptor{
		ID:             "runway-gen3",
		Category:       domain.StepImageToVideo,
		Provider:       "runway",
		RequiredParams: []string{"image"},
		OptionalParams: []string{"duration", "prompt"},
		Cost:           perSecond(0.25, 5),
	})

	// text_to_video
	r.Register(&Descriptor{
		ID:             "veo-2",
		Category:       domain.StepTextToVideo,
		Provider:       "google",
		RequiredParams: []string{"prompt"},
		OptionalParams: []string{"duration", "aspect_ratio"},
		Default:        true,
		Cost:           perSecond(0.50, 5),
	})
	r.Register(&Descriptor{
		ID:             "ltx-video",
		Category:       domain.StepTextToVideo,
		Provider:       "replicate",
		RequiredParams: []string{"prompt"},
		OptionalParams: []string{"duration"},
		Cost:           perSecond(0.06, 5),
	})

	// video_analysis
	r.Register(&Descriptor{
		ID:             "gemini-flash",
		Category:       domain.StepVideoAnalysis,
		Provider:       "google",
		RequiredParams: []string{"video"},
		OptionalParams: []string{"duration", "prompt"},
		Default:        true,
		Cost:           perSecond(0.0002, 60),
	})

	// text_to_speech
	r.Register(&Descriptor{
		ID:             "eleven-multilingual-v2",
		Category:       domain.StepTextToSpeech,
		Provider:       "elevenlabs",
		RequiredParams: []string{"text"},
		OptionalParams: []string{"voice", "speed"},
		Default:        true,
		Cost:           perKiloChars(0.18),
	})

	// speech_to_text
	r.Register(&Descriptor{
		ID:             "whisper-large-v3",
		Category:       domain.StepSpeechToText,
		Provider:       "openai",
		RequiredParams: []string{"audio"},
		OptionalParams: []string{"duration", "language"},
		Default:        true,
		Cost:           perMinute(0.006, 60),
	})

	// upscale
	r.Register(&Descriptor{
		ID:             "topaz-video-ai",
		Category:       domain.StepUpscale,
		Provider:       "topaz",
		RequiredParams: []string{"video"},
		OptionalParams: []string{"duration", "scale"},
		Default:        true,
		Cost:           perSecond(0.10, 5),
	})
	r.Register(&Descriptor{
		ID:             "esrgan-4x",
		Category:       domain.StepUpscale,
		Provider:       "replicate",
		RequiredParams: []string{"image"},
		OptionalParams: []string{"count", "scale"},
		Cost:           perCount(0.002),
	})

	return r
}

// perCount charges a flat rate per generated item ("count", default 1).
func perCount(rate float64) CostFn {
	return func(params map[string]any) float64 {
		return rate * floatParam(params, "count", 1)
	}
}

// perSecond charges per second of media ("duration", in seconds).
func perSecond(rate, defaultSeconds float64) CostFn {
	return func(params map[string]any) float64 {
		return rate * floatParam(params, "duration", defaultSeconds)
	}
}

// perMinute charges per minute of audio ("duration", in seconds).
func perMinute(rate, defaultSeconds float64) CostFn {
	return func(params map[string]any) float64 {
		return rate * floatParam(params, "duration", defaultSeconds) / 60
	}
}

// perKiloChars charges per 1000 characters of the "text" parameter.
func perKiloChars(rate float64) CostFn {
	return func(params map[string]any) float64 {
		text, _ := params["text"].(string)
		if text == "" {
			return 0
		}
		return rate * float64(len(text)) / 1000
	}
}

// floatParam reads a numeric parameter, tolerant of the types YAML
// and JSON decoders produce.
func floatParam(params map[string]any, key string, def float64) float64 {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case float64:
		return x
	case float32:
		return float64(x)
	default:
		return def
	}
}
