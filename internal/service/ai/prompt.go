package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
	"github.com/cloudwego/eino/components/document/parser"

	"aurorachat/internal/config"
)

// SystemPrompt returns the configured prompt followed by the contents of
// system_prompt_file, if one is set. The file is read once, at startup.
func SystemPrompt(ctx context.Context, cfg *config.Config) (string, error) {
	base := strings.TrimSpace(cfg.SystemPrompt)
	if cfg.SystemPromptFile == "" {
		return base, nil
	}
	notes, err := loadPromptFile(ctx, cfg.SystemPromptFile)
	if err != nil {
		return "", err
	}
	if base == "" {
		return notes, nil
	}
	return base + "\n\n" + notes, nil
}

func loadPromptFile(ctx context.Context, path string) (string, error) {
	parserExt, err := parser.NewExtParser(ctx, &parser.ExtParserConfig{
		FallbackParser: parser.TextParser{},
	})
	if err != nil {
		return "", fmt.Errorf("init prompt parser: %w", err)
	}
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{
		UseNameAsID: true,
		Parser:      parserExt,
	})
	if err != nil {
		return "", fmt.Errorf("init prompt loader: %w", err)
	}

	docs, err := loader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("load system_prompt_file: %w", err)
	}
	var builder strings.Builder
	for _, doc := range docs {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		builder.WriteString(content)
		builder.WriteString("\n\n")
	}
	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", errors.New("system_prompt_file has no readable text")
	}
	return text, nil
}
