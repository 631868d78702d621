package led

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs drives one /sys/class/leds entry per register bit.
type sysfs struct {
	root    string
	leds    []string // bit index -> sysfs name
	last    uint32
	written bool
}

// newSysfs checks every LED exists and hands it over to manual control.
func newSysfs(root string, leds []string) (*sysfs, error) {
	if len(leds) == 0 {
		return nil, errors.New("sysfs LED sink needs at least one LED name")
	}
	if len(leds) > 32 {
		return nil, fmt.Errorf("sysfs LED sink supports at most 32 LEDs, got %d", len(leds))
	}
	if root == "" {
		root = sysfsLEDPath
	}

	s := &sysfs{root: root, leds: leds}
	for _, name := range leds {
		ledPath := filepath.Join(root, name)
		if _, err := os.Stat(ledPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("LED %q not found at %s", name, ledPath)
		}
		// Detach any kernel trigger so brightness writes stick.
		triggerPath := filepath.Join(ledPath, "trigger")
		if _, err := os.Stat(triggerPath); err == nil {
			if err := os.WriteFile(triggerPath, []byte("none"), 0644); err != nil {
				return nil, fmt.Errorf("failed to set LED trigger to none: %w", err)
			}
		}
	}
	return s, nil
}

func (s *sysfs) Name() string { return BackendSysfs }

// Write updates only the LEDs whose bit changed since the previous write.
func (s *sysfs) Write(value uint32) error {
	var errs []error
	for i, name := range s.leds {
		bit := uint32(1) << uint(i)
		if s.written && (s.last^value)&bit == 0 {
			continue
		}
		brightness := "0"
		if value&bit == 0 {
			brightness = "1"
		}
		brightnessPath := filepath.Join(s.root, name, "brightness")
		if err := os.WriteFile(brightnessPath, []byte(brightness), 0644); err != nil {
			errs = append(errs, fmt.Errorf("failed to set LED %s brightness: %w", name, err))
		}
	}
	if len(errs) == 0 {
		s.last = value
		s.written = true
	}
	return errors.Join(errs...)
}

// Close turns every LED off.
func (s *sysfs) Close() error {
	var errs []error
	for _, name := range s.leds {
		if err := os.WriteFile(filepath.Join(s.root, name, "brightness"), []byte("0"), 0644); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
