package config

import (
	"os"
	"sync"
)

type UploadConfig struct {
	MaxSize int64 // bytes
	Dir     string
}

var (
	uploadConfig *UploadConfig
	uploadOnce   sync.Once
)

func LoadUploadConfig() *UploadConfig {
	uploadOnce.Do(func() {
		dir := os.Getenv("UPLOAD_DIR")
		if dir == "" {
			dir = "./uploads/transcripts"
		}
		uploadConfig = &UploadConfig{
			MaxSize: int64(envInt("MAX_UPLOAD_SIZE", 5*1024*1024)),
			Dir:     dir,
		}
	})
	return uploadConfig
}
