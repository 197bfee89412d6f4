package templating

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"text/template"

	"github.com/yegors/co-translate/pkg/logger"
)

// Engine handles prompt template loading, caching, and rendering
type Engine struct {
	templateCache map[string]*template.Template
	cacheMutex    sync.RWMutex
	logger        *logger.Logger
}

// NewEngine creates a new template engine
func NewEngine(logger *logger.Logger) *Engine {
	return &Engine{
		templateCache: make(map[string]*template.Template),
		logger:        logger.Named("template-engine"),
	}
}

// RenderPrompt renders the template at templatePath, or the built-in
// translation prompt when templatePath is empty
func (e *Engine) RenderPrompt(templatePath string, data PromptData) (string, error) {
	tmpl, err := e.getTemplate(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to get template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	rendered := buf.String()
	e.logger.Debug("Template rendered successfully",
		logger.String("template_path", templatePath),
		logger.Int("rendered_length", len(rendered)))

	return rendered, nil
}

// getTemplate retrieves a template from cache or loads it from file
func (e *Engine) getTemplate(templatePath string) (*template.Template, error) {
	key := templatePath
	if key == "" {
		key = builtinKey
	}

	e.cacheMutex.RLock()
	if tmpl, exists := e.templateCache[key]; exists {
		e.cacheMutex.RUnlock()
		return tmpl, nil
	}
	e.cacheMutex.RUnlock()

	e.cacheMutex.Lock()
	defer e.cacheMutex.Unlock()

	// Another goroutine may have loaded it while we waited
	if tmpl, exists := e.templateCache[key]; exists {
		return tmpl, nil
	}

	tmpl, err := e.loadTemplate(templatePath)
	if err != nil {
		return nil, err
	}

	e.templateCache[key] = tmpl
	e.logger.Debug("Template loaded and cached",
		logger.String("template_path", key))

	return tmpl, nil
}

func (e *Engine) loadTemplate(templatePath string) (*template.Template, error) {
	if templatePath == "" {
		return template.New(builtinKey).Parse(DefaultTranslationPrompt)
	}

	content, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file '%s': %w", templatePath, err)
	}

	tmpl, err := template.New(templatePath).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template file '%s': %w", templatePath, err)
	}

	return tmpl, nil
}

// ReloadTemplate re-reads templatePath and replaces the cached copy. The
// old template stays cached when the new one fails to load.
func (e *Engine) ReloadTemplate(templatePath string) error {
	if templatePath == "" {
		return nil
	}

	tmpl, err := e.loadTemplate(templatePath)
	if err != nil {
		return err
	}

	e.cacheMutex.Lock()
	e.templateCache[templatePath] = tmpl
	e.cacheMutex.Unlock()

	e.logger.Info("Template reloaded",
		logger.String("template_path", templatePath))
	return nil
}
