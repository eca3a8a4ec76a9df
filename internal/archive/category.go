package archive

import (
	"path/filepath"
	"strings"

	"zipdex/internal/model"
)

var videoExtensions = map[string]bool{
	".mp4": true, ".avi": true, ".mov": true, ".mkv": true, ".wmv": true,
	".flv": true, ".webm": true, ".m4v": true, ".3gp": true, ".3g2": true,
	".asf": true, ".divx": true, ".f4v": true, ".m2ts": true, ".mts": true,
	".ogv": true, ".rm": true, ".rmvb": true, ".vob": true, ".xvid": true,
	".mpg": true, ".mpeg": true, ".m1v": true, ".m2v": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true,
	".tiff": true, ".tif": true, ".webp": true, ".heic": true, ".heif": true,
	".raw": true, ".cr2": true, ".nef": true, ".svg": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".wav": true, ".flac": true, ".aac": true, ".ogg": true,
	".m4a": true, ".wma": true, ".opus": true, ".aiff": true,
}

var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".md": true, ".html": true,
	".json": true, ".csv": true, ".xml": true,
}

var archiveExtensions = map[string]bool{
	".zip": true, ".tar": true, ".gz": true, ".bz2": true, ".xz": true,
	".7z": true, ".rar": true, ".tgz": true,
}

// DetectCategory classifies a file by its extension.
func DetectCategory(name string) model.Category {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case videoExtensions[ext]:
		return model.CategoryVideo
	case imageExtensions[ext]:
		return model.CategoryImage
	case audioExtensions[ext]:
		return model.CategoryAudio
	case documentExtensions[ext]:
		return model.CategoryDocument
	case archiveExtensions[ext]:
		return model.CategoryArchive
	default:
		return model.CategoryOther
	}
}

// ParseCategories converts config strings into a category set.
// The empty list (or the single value "all") means no filtering.
func ParseCategories(names []string) map[model.Category]bool {
	if len(names) == 0 {
		return nil
	}
	set := make(map[model.Category]bool, len(names))
	for _, n := range names {
		if strings.EqualFold(n, "all") {
			return nil
		}
		set[model.Category(strings.ToLower(n))] = true
	}
	return set
}
