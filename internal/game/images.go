package game

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lingualink/internal/logger"
	"lingualink/pkg/types"
)

const dataURLPrefix = "data:image/png;base64,"

// Inliner replaces image_url references of image_match games with data
// URLs read from a directory.
type Inliner struct {
	dir    string
	logger logger.Logger
}

func NewInliner(dir string, log logger.Logger) *Inliner {
	return &Inliner{dir: dir, logger: log.With(logger.Component("game"))}
}

// Prepare returns the question JSON sent to clients for g. Only
// image_match games are rewritten; unreadable images keep their URL.
func (in *Inliner) Prepare(g *types.GameItem) (string, error) {
	if g.Type != types.GameImageMatch {
		return g.QuestionJSON, nil
	}

	var items []map[string]any
	if err := json.Unmarshal([]byte(g.QuestionJSON), &items); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidQuestions, err)
	}
	for _, it := range items {
		ref, ok := it["image_url"].(string)
		if !ok || ref == "" || strings.HasPrefix(ref, "data:") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(in.dir, filepath.Base(ref)))
		if err != nil {
			in.logger.Warn("image not inlined",
				logger.Int64("game_id", g.ID),
				logger.String("image", ref),
				logger.Err(err))
			continue
		}
		it["image_url"] = dataURLPrefix + base64.StdEncoding.EncodeToString(data)
	}

	out, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
