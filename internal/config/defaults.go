package config

const (
	defaultWorkDir               = "~/.local/share/scraibe/work"
	defaultLogDir                = "~/.local/share/scraibe/logs"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultAPIBind               = "127.0.0.1:7488"
	defaultMaxConcurrent         = 1
	defaultThreadsPerModel       = 4
	defaultUVXBinary             = "uvx"
	defaultWhisperXModel         = "large-v3"
	defaultWhisperXVADMethod     = "pyannote"
	defaultBatchSize             = 16
	defaultComputeType           = "int8"
	defaultMailPort              = 587
	defaultMailTLSPolicy         = "mandatory"
	defaultMailTimeout           = 30
	defaultNotifyRequestTimeout  = 10
	defaultMaxSpeakers           = 32
	defaultSuccessSubject        = "Your transcript is ready"
	defaultErrorSubject          = "Your transcription job failed"
	defaultSuccessTemplate       = `Hello,

your transcription job has finished. The results are attached:
{{range .Files}}  - {{.}}
{{end}}
Kind regards,
scraibe
`
	defaultErrorTemplate = `Hello,

unfortunately your transcription job could not be completed.

Reason: {{.Message}}

Please check your upload and try again.

Kind regards,
scraibe
`
)

// MaxSpeakers is the largest speaker-count hint accepted for a job.
const MaxSpeakers = defaultMaxSpeakers

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Jobs: Jobs{
			MaxConcurrent:   defaultMaxConcurrent,
			ThreadsPerModel: defaultThreadsPerModel,
		},
		Engine: Engine{
			UVXBinary:         defaultUVXBinary,
			WhisperXModel:     defaultWhisperXModel,
			WhisperXVADMethod: defaultWhisperXVADMethod,
			BatchSize:         defaultBatchSize,
			ComputeType:       defaultComputeType,
		},
		Mail: Mail{
			Port:            defaultMailPort,
			TLSPolicy:       defaultMailTLSPolicy,
			RequestTimeout:  defaultMailTimeout,
			SuccessSubject:  defaultSuccessSubject,
			SuccessTemplate: defaultSuccessTemplate,
			ErrorSubject:    defaultErrorSubject,
			ErrorTemplate:   defaultErrorTemplate,
		},
		Notifications: Notifications{
			RequestTimeout:       defaultNotifyRequestTimeout,
			JobFailures:          true,
			NotificationFailures: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
