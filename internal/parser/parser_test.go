package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validManifest = `apiVersion: v1
kind: Matrix
metadata:
  name: smc-client
  description: Client library test matrix
  labels:
    team: netsec
spec:
  source:
    git:
      url: https://gitlab.example.com/acme/smc-client.git
      ref: main
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  bootstrap:
    script: tests/bootstrap/start-lab.sh
  test:
    command: [pytest, --cov, smc, --cov-report, html]
  environments:
    - name: py27
      image: python:2.7
      deps: [pytest, pytest-cov, mock, ipaddress]
    - name: py35
      image: python:3.5
      deps: [pytest, pytest-cov]
    - name: py36
      image: python:3.6
      deps: [pytest, pytest-cov]
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "runmatrix-test-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	filePath := filepath.Join(tmpDir, "matrix.yaml")
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return filePath
}

func TestParse_ValidManifest(t *testing.T) {
	m, err := Parse(writeManifest(t, validManifest))
	if err != nil {
		t.Fatalf("Expected successful parsing, got error: %v", err)
	}

	if m.APIVersion != "v1" {
		t.Errorf("Expected APIVersion 'v1', got '%s'", m.APIVersion)
	}
	if m.Kind != "Matrix" {
		t.Errorf("Expected Kind 'Matrix', got '%s'", m.Kind)
	}
	if m.Metadata.Name != "smc-client" {
		t.Errorf("Expected Name 'smc-client', got '%s'", m.Metadata.Name)
	}
	if m.Spec.Package != "smc" {
		t.Errorf("Expected package 'smc', got '%s'", m.Spec.Package)
	}
	if len(m.Spec.Environments) != 3 {
		t.Fatalf("Expected 3 environments, got %d", len(m.Spec.Environments))
	}
	if m.Spec.Environments[0].Name != "py27" || m.Spec.Environments[0].Image != "python:2.7" {
		t.Errorf("Unexpected first environment: %+v", m.Spec.Environments[0])
	}
	if m.Spec.Source.Git == nil || m.Spec.Source.Git.Ref != "main" {
		t.Errorf("Unexpected source config: %+v", m.Spec.Source)
	}
	if got := m.Spec.InstallerCommand(); len(got) != 2 || got[0] != "pip" {
		t.Errorf("Expected default pip installer, got %v", got)
	}
}

func TestParse_FileNotFound(t *testing.T) {
	_, err := Parse("nonexistent-file.yaml")
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}
	if !strings.Contains(err.Error(), "matrix file not found") {
		t.Errorf("Expected 'file not found' error, got: %v", err)
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	malformedYaml := `apiVersion: v1
kind: Matrix
metadata:
  name: test
  description: "unclosed quote
spec:
  invalid yaml structure
`

	_, err := Parse(writeManifest(t, malformedYaml))
	if err == nil {
		t.Fatal("Expected error for malformed YAML, got nil")
	}
	if !strings.Contains(err.Error(), "failed to read matrix file") {
		t.Errorf("Expected 'failed to read matrix file' error, got: %v", err)
	}
}

func TestParse_ValidationFailures(t *testing.T) {
	tests := []struct {
		name          string
		yaml          string
		expectedError string
	}{
		{
			name: "missing apiVersion",
			yaml: `kind: Matrix
metadata:
  name: test
spec:
  source:
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  bootstrap:
    script: start.sh
  test:
    command: [pytest]
  environments:
    - name: py36
      image: python:3.6
`,
			expectedError: "field 'APIVersion' is required but missing",
		},
		{
			name: "wrong kind value",
			yaml: `apiVersion: v1
kind: Blueprint
metadata:
  name: test
spec:
  source:
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  bootstrap:
    script: start.sh
  test:
    command: [pytest]
  environments:
    - name: py36
      image: python:3.6
`,
			expectedError: "field 'Kind' must be 'Matrix'",
		},
		{
			name: "empty environment list",
			yaml: `apiVersion: v1
kind: Matrix
metadata:
  name: test
spec:
  source:
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  bootstrap:
    script: start.sh
  test:
    command: [pytest]
  environments: []
`,
			expectedError: "'Environments'",
		},
		{
			name: "environment without image",
			yaml: `apiVersion: v1
kind: Matrix
metadata:
  name: test
spec:
  source:
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  bootstrap:
    script: start.sh
  test:
    command: [pytest]
  environments:
    - name: py36
`,
			expectedError: "field 'Image' is required but missing",
		},
		{
			name: "duplicate environment names",
			yaml: `apiVersion: v1
kind: Matrix
metadata:
  name: test
spec:
  source:
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  bootstrap:
    script: start.sh
  test:
    command: [pytest]
  environments:
    - name: py36
      image: python:3.6
    - name: py36
      image: python:3.6
`,
			expectedError: "duplicate environment name 'py36'",
		},
		{
			name: "invalid git URL",
			yaml: `apiVersion: v1
kind: Matrix
metadata:
  name: test
spec:
  source:
    git:
      url: not-a-url
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  bootstrap:
    script: start.sh
  test:
    command: [pytest]
  environments:
    - name: py36
      image: python:3.6
`,
			expectedError: "must be a valid URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(writeManifest(t, tt.yaml))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.expectedError) {
				t.Errorf("Expected error containing %q, got: %v", tt.expectedError, err)
			}
		})
	}
}

func TestParse_CustomInstaller(t *testing.T) {
	yaml := `apiVersion: v1
kind: Matrix
metadata:
  name: test
spec:
  source:
    path: ./checkout
  package: smc
  workdir: ./.runmatrix
  installer: [pip3, install, --no-cache-dir]
  bootstrap:
    script: start.sh
  test:
    command: [pytest]
  environments:
    - name: py36
      image: python:3.6
`

	m, err := Parse(writeManifest(t, yaml))
	if err != nil {
		t.Fatalf("Expected successful parsing, got error: %v", err)
	}

	got := m.Spec.InstallerCommand()
	if len(got) != 3 || got[0] != "pip3" || got[2] != "--no-cache-dir" {
		t.Errorf("Expected custom installer command, got %v", got)
	}
}
