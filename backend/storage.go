package backend

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const settingsFile = "megacli.conf"

type Settings struct {
	Video     string
	Opacity   float64
	Provider  string
	Palette   string
	QueueSize int
}

func DefaultSettings() Settings {
	return Settings{
		Video:     "loading.mp4",
		Opacity:   0.3,
		Provider:  "claude",
		Palette:   "ascii",
		QueueSize: 8,
	}
}

// DefaultConfigDir returns ~/.config/megacli or the platform equivalent
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".megacli")
	}
	return filepath.Join(dir, "megacli")
}

// InitConfigDir creates configDir and writes default settings if megacli.conf doesn't exist
func InitConfigDir(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(configDir, settingsFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConf(path, DefaultSettings()); err != nil {
			return fmt.Errorf("could not write default settings: %w", err)
		}
	}
	return nil
}

// LoadSettings loads megacli.conf from configDir. Missing or malformed values keep their defaults
func LoadSettings(configDir string) Settings {
	s := DefaultSettings()

	conf := parseConf(filepath.Join(configDir, settingsFile))

	if v, ok := conf["video"]; ok && v != "" {
		s.Video = v
	}
	if v, ok := conf["opacity"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.Opacity = f
		}
	}
	if v, ok := conf["provider"]; ok && v != "" {
		s.Provider = v
	}
	if v, ok := conf["palette"]; ok && v != "" {
		s.Palette = v
	}
	if v, ok := conf["queue_size"]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.QueueSize = n
		}
	}

	return s
}

// SaveSettings overwrites megacli.conf in configDir
func SaveSettings(configDir string, s Settings) error {
	return writeConf(filepath.Join(configDir, settingsFile), s)
}

func writeConf(path string, s Settings) error {
	var b strings.Builder
	b.WriteString("# megacli config\n\n")
	b.WriteString("# background video, looped behind the chat\n")
	b.WriteString(fmt.Sprintf("video = %s\n", s.Video))
	b.WriteString("# 0 hides the background, 1 shows it at full brightness\n")
	b.WriteString(fmt.Sprintf("opacity = %s\n", strconv.FormatFloat(s.Opacity, 'g', -1, 64)))
	b.WriteString("# claude, grok, openai or gemini\n")
	b.WriteString(fmt.Sprintf("provider = %s\n", s.Provider))
	b.WriteString("# ascii, blocks, or a custom light-to-dense glyph ramp\n")
	b.WriteString(fmt.Sprintf("palette = %s\n", s.Palette))
	b.WriteString(fmt.Sprintf("queue_size = %d\n", s.QueueSize))
	return os.WriteFile(path, []byte(b.String()), 0644)
}

func parseConf(path string) map[string]string {
	result := make(map[string]string)
	file, err := os.Open(path)
	if err != nil {
		return result
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, "="); ok {
			result[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return result
}
