package hal

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/apophisnow/icemaker/internal/models"
)

// DefaultW1Dir is where the w1-therm kernel driver exposes probes.
const DefaultW1Dir = "/sys/bus/w1/devices"

// W1Reader reads DS18B20 probes through the w1-therm sysfs interface.
type W1Reader struct {
	Dir string
}

// NewW1Reader returns a reader rooted at dir, or DefaultW1Dir when empty.
func NewW1Reader(dir string) *W1Reader {
	if dir == "" {
		dir = DefaultW1Dir
	}
	return &W1Reader{Dir: dir}
}

// ReadF accepts either a full device name ("28-0921...") or the bare serial,
// in which case any family prefix matches.
func (r *W1Reader) ReadF(id string) (float64, error) {
	path, err := r.devicePath(id)
	if err != nil {
		return 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", models.ErrSensorFault, path, err)
	}
	c, err := parseW1Slave(data)
	if err != nil {
		return 0, fmt.Errorf("%w: probe %s: %v", models.ErrSensorFault, id, err)
	}
	return models.CelsiusToFahrenheit(c), nil
}

func (r *W1Reader) devicePath(id string) (string, error) {
	if strings.Contains(id, "-") {
		return filepath.Join(r.Dir, id, "w1_slave"), nil
	}
	matches, err := filepath.Glob(filepath.Join(r.Dir, "*-"+id, "w1_slave"))
	if err != nil {
		return "", fmt.Errorf("%w: probe %s: %v", models.ErrSensorFault, id, err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: probe %s not found under %s", models.ErrSensorFault, id, r.Dir)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: probe %s is ambiguous (%d devices)", models.ErrSensorFault, id, len(matches))
}

// parseW1Slave decodes the two-line w1_slave format:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
//
// and returns °C.
func parseW1Slave(data []byte) (float64, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	var lines []string
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return 0, errors.New("truncated w1_slave output")
	}
	if !strings.HasSuffix(lines[0], "YES") {
		return 0, errors.New("crc check failed")
	}
	i := strings.LastIndex(lines[1], "t=")
	if i < 0 {
		return 0, errors.New("missing temperature field")
	}
	milli, err := strconv.Atoi(lines[1][i+2:])
	if err != nil {
		return 0, fmt.Errorf("bad temperature field: %v", err)
	}
	return float64(milli) / 1000, nil
}
