package config

import "time"

type Config struct {
	Log         Log           `mapstructure:"log"`
	Server      Server        `mapstructure:"server"`
	Upload      Upload        `mapstructure:"upload"`
	Compression Compression   `mapstructure:"compression"`
	Media       Media         `mapstructure:"media"`
	Report      Report        `mapstructure:"report"`
	SessionTTL  time.Duration `mapstructure:"session_ttl" validate:"required"`
}

type Log struct {
	Mode string `mapstructure:"mode" validate:"required,oneof=dev prod none"`
}

type Server struct {
	Address string       `mapstructure:"address" validate:"required,hostname|ip"`
	Port    int          `mapstructure:"port" validate:"required,min=1,max=65535"`
	Limits  ServerLimits `mapstructure:"limits"`
}

type ServerLimits struct {
	MaxPayloadSize  int64 `mapstructure:"max_payload_size" validate:"required,min=1"`
	MaxMultipartMem int64 `mapstructure:"max_multipart_mem" validate:"required,min=1"`
}

type Upload struct {
	MaxFileSize int64 `mapstructure:"max_file_size" validate:"required,min=1"`
}

type Compression struct {
	MaxDimension int     `mapstructure:"max_dimension" validate:"required,min=1"`
	Quality      float64 `mapstructure:"quality" validate:"required,gt=0,lte=1"`
	MaxBytes     int64   `mapstructure:"max_bytes" validate:"required,min=1"`
	// Thumbnails uploads a preview of every image, sized by the thumbnail_* keys.
	Thumbnails         bool    `mapstructure:"thumbnails"`
	ThumbnailDimension int     `mapstructure:"thumbnail_dimension" validate:"required,min=1"`
	ThumbnailQuality   float64 `mapstructure:"thumbnail_quality" validate:"required,gt=0,lte=1"`
	ThumbnailMaxBytes  int64   `mapstructure:"thumbnail_max_bytes" validate:"required,min=1"`
	MeasureDimensions  bool    `mapstructure:"measure_dimensions"`
	// MaxPixels caps width*height of a source image; zero uses the built-in budget.
	MaxPixels int64 `mapstructure:"max_pixels" validate:"gte=0"`
}

type Media struct {
	Strategy   string                   `mapstructure:"strategy" validate:"required,oneof=noop s3 filesystem"`
	S3         *S3MediaStrategy         `mapstructure:"s3" validate:"required_if=Strategy s3"`
	Filesystem *FilesystemMediaStrategy `mapstructure:"filesystem" validate:"required_if=Strategy filesystem"`
}

type S3MediaStrategy struct {
	AccessKeyId string `mapstructure:"access_key_id" validate:"required"`
	SecretKeyId string `mapstructure:"secret_key_id" validate:"required"`
	Region      string `mapstructure:"region" validate:"required"`
	Bucket      string `mapstructure:"bucket" validate:"required"`
	Endpoint    string `mapstructure:"endpoint"`
	Insecure    bool   `mapstructure:"insecure"`
	PublicUrl   string `mapstructure:"public_url" validate:"required,url"`
	PathPattern string `mapstructure:"path_pattern" validate:"pathpattern"`
}

type FilesystemMediaStrategy struct {
	Path        string `mapstructure:"path" validate:"required,abspath"`
	PublicUrl   string `mapstructure:"public_url" validate:"required,url"`
	PathPattern string `mapstructure:"path_pattern" validate:"pathpattern"`
}

type Report struct {
	Strategy string             `mapstructure:"strategy" validate:"required,oneof=noop sql d1"`
	SQL      *SQLReportStrategy `mapstructure:"sql" validate:"required_if=Strategy sql"`
	D1       *D1ReportStrategy  `mapstructure:"d1" validate:"required_if=Strategy d1"`
}

type SQLReportStrategy struct {
	Driver      string  `mapstructure:"driver" validate:"required,oneof=postgres mysql"`
	DSN         string  `mapstructure:"dsn" validate:"required"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitnil,identifier"`
}

type D1ReportStrategy struct {
	AccountID   string  `mapstructure:"account_id" validate:"required"`
	DatabaseID  string  `mapstructure:"database_id" validate:"required"`
	APIToken    string  `mapstructure:"api_token" validate:"required"`
	Endpoint    string  `mapstructure:"endpoint" validate:"omitempty,url"`
	TablePrefix *string `mapstructure:"table_prefix" validate:"omitnil,identifier"`
}
