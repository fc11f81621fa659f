package transcribe

import (
	"os"
	"path/filepath"

	"yt-transcriber/internal/domain"
)

const modelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

var whisperModelCatalog = []domain.WhisperModelOption{
	{
		Size:        domain.ModelTiny,
		Name:        "Tiny",
		FileName:    "ggml-tiny.bin",
		URL:         modelBaseURL + "ggml-tiny.bin",
		SizeLabel:   "~75 MB",
		Description: "Fastest multilingual model.",
	},
	{
		Size:        domain.ModelBase,
		Name:        "Base",
		FileName:    "ggml-base.bin",
		URL:         modelBaseURL + "ggml-base.bin",
		SizeLabel:   "~142 MB",
		Description: "Balanced speed/quality.",
	},
	{
		Size:        domain.ModelSmall,
		Name:        "Small",
		FileName:    "ggml-small.bin",
		URL:         modelBaseURL + "ggml-small.bin",
		SizeLabel:   "~466 MB",
		Description: "Good quality for most talks and interviews.",
	},
	{
		Size:        domain.ModelMedium,
		Name:        "Medium",
		FileName:    "ggml-medium.bin",
		URL:         modelBaseURL + "ggml-medium.bin",
		SizeLabel:   "~1.5 GB",
		Description: "High quality, needs several GB of RAM.",
	},
	{
		Size:        domain.ModelLarge,
		Name:        "Large v3",
		FileName:    "ggml-large-v3.bin",
		URL:         modelBaseURL + "ggml-large-v3.bin",
		SizeLabel:   "~2.9 GB",
		Description: "Best quality, slowest; may exhaust memory on small machines.",
	},
}

// Catalog returns the built-in whisper.cpp model presets, one per ModelSize.
func Catalog() []domain.WhisperModelOption {
	models := make([]domain.WhisperModelOption, len(whisperModelCatalog))
	copy(models, whisperModelCatalog)
	return models
}

func modelForSize(size domain.ModelSize) (domain.WhisperModelOption, bool) {
	for _, model := range whisperModelCatalog {
		if model.Size == size {
			return model, true
		}
	}
	return domain.WhisperModelOption{}, false
}

// markDownloadedModels flags catalog entries whose weight file exists in dir.
func markDownloadedModels(models []domain.WhisperModelOption, dir string, stat func(string) (os.FileInfo, error)) {
	for i := range models {
		candidate := filepath.Join(dir, models[i].FileName)
		info, err := stat(candidate)
		if err != nil || info.IsDir() || info.Size() == 0 {
			continue
		}
		models[i].Downloaded = true
		models[i].LocalPath = candidate
	}
}
