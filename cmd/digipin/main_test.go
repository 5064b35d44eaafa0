package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestEncode(t *testing.T) {
	code, out, _ := runCLI("encode", "--lat", "12.9716", "--lon", "77.5946")
	if code != 0 || strings.TrimSpace(out) != "4P3-JK8-52C9" {
		t.Fatalf("code=%d out=%q", code, out)
	}
}

func TestEncode_OutOfRange(t *testing.T) {
	code, _, errOut := runCLI("encode", "--lat", "40", "--lon", "77.5946")
	if code != 1 || !strings.Contains(errOut, "latitude out of range") {
		t.Fatalf("code=%d stderr=%q", code, errOut)
	}
}

func TestDecode_TextAndJSON(t *testing.T) {
	code, out, _ := runCLI("decode", "39j-49l-l8t4")
	if code != 0 || strings.TrimSpace(out) != "28.622793,77.213049" {
		t.Fatalf("code=%d out=%q", code, out)
	}

	code, out, _ = runCLI("-f", "json", "decode", "39J49LL8T4")
	if code != 0 {
		t.Fatalf("json code=%d", code)
	}
	var got struct {
		DigiPin string  `json:"digipin"`
		Lat     float64 `json:"lat"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("json output: %v (%s)", err, out)
	}
	if got.DigiPin != "39J-49L-L8T4" || got.Lat < 28.6227 || got.Lat > 28.6228 {
		t.Fatalf("unexpected json: %+v", got)
	}
}

func TestDecode_Invalid(t *testing.T) {
	code, _, errOut := runCLI("decode", "ABC-DEF-GHIJ")
	if code != 1 || !strings.Contains(errOut, "invalid character") {
		t.Fatalf("code=%d stderr=%q", code, errOut)
	}
	code, _, _ = runCLI("decode")
	if code != 1 {
		t.Fatalf("missing CODE should fail, code=%d", code)
	}
}

func TestBounds_YAML(t *testing.T) {
	code, out, _ := runCLI("--format", "yaml", "bounds", "4")
	if code != 0 {
		t.Fatalf("code=%d", code)
	}
	var got map[string]any
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("yaml output: %v (%s)", err, out)
	}
	// "4" is row 2, col 1 of the first level grid
	if got["minLat"] != 11.5 || got["maxLat"] != 20.5 || got["minLon"] != 72.5 || got["maxLon"] != 81.5 {
		t.Fatalf("unexpected bounds: %v", got)
	}
}

func TestHelp(t *testing.T) {
	code, out, _ := runCLI("--help")
	if code != 0 || !strings.Contains(out, "encode") {
		t.Fatalf("code=%d out=%q", code, out)
	}
}
