// Package speech turns board messages into audio: a cloud synthesizer, an
// audio cache and an oto player behind the domain.Speaker interface.
package speech

// Voice defaults. Google voice names embed the language code.
const (
	DefaultGoogleVoice = "en-US-Neural2-F"
	DefaultAzureVoice  = "en-US-AvaNeural"
	DefaultLanguage    = "en-US"
)

// Audio format requested from every synthesizer and expected by the player.
const (
	SampleRate   = 24000
	ChannelCount = 1
	BitDepth     = 16
)

// Azure output format matching the audio parameters above.
const azureAudioFormat = "riff-24khz-16bit-mono-pcm"
