package matrix

// Matrix is the root object that holds the entire configuration for a RunMatrix execution.
// It's populated by parsing the user's matrix.yaml file.
type Matrix struct {
	APIVersion string   `yaml:"apiVersion" validate:"required"`
	Kind       string   `yaml:"kind" validate:"required,eq=Matrix"`
	Metadata   Metadata `yaml:"metadata" validate:"required"`
	Spec       Spec     `yaml:"spec" validate:"required"`
}

// Metadata contains project-level metadata.
type Metadata struct {
	Name        string            `yaml:"name" validate:"required"`
	Description string            `yaml:"description"`
	Labels      map[string]string `yaml:"labels,omitempty"`
}

// Spec contains the detailed specifications for the test matrix.
type Spec struct {
	Source       Source        `yaml:"source" validate:"required"`
	Package      string        `yaml:"package" validate:"required"`
	WorkDir      string        `yaml:"workdir" validate:"required"`
	Installer    []string      `yaml:"installer,omitempty"`
	Bootstrap    Bootstrap     `yaml:"bootstrap" validate:"required"`
	Test         Test          `yaml:"test" validate:"required"`
	Environments []Environment `yaml:"environments" validate:"required,min=1,dive"`
	Reporting    *Reporting    `yaml:"reporting,omitempty"`
}

// Source describes where the package under test comes from. When Git is
// set the checkout is fetched into Path before any environment runs;
// otherwise Path is used as-is.
type Source struct {
	Git  *GitSource `yaml:"git,omitempty"`
	Path string     `yaml:"path" validate:"required"`
}

// GitSource configures a git fetch of the package under test.
type GitSource struct {
	URL string `yaml:"url" validate:"required,url"`
	Ref string `yaml:"ref,omitempty"`
}

// Bootstrap configures the setup step that must succeed before the test
// run starts. Script is a path relative to the checkout root.
type Bootstrap struct {
	Script string `yaml:"script" validate:"required"`
}

// Test configures the coverage-instrumented test run.
type Test struct {
	Command []string `yaml:"command" validate:"required,min=1"`
}

// Environment is one isolated runtime/dependency combination to execute
// the command sequence in.
type Environment struct {
	Name  string   `yaml:"name" validate:"required"`
	Image string   `yaml:"image" validate:"required"`
	Deps  []string `yaml:"deps,omitempty"`
}

// Reporting configures optional result publication after the run.
type Reporting struct {
	GitLab *GitLabReporting `yaml:"gitlab,omitempty"`
}

// GitLabReporting publishes one commit status per environment.
type GitLabReporting struct {
	URL     string `yaml:"url" validate:"required,url"`
	Project string `yaml:"project" validate:"required"`
	SHA     string `yaml:"sha" validate:"required"`
}

// InstallerCommand returns the dependency install command prefix,
// defaulting to pip when the manifest doesn't override it.
func (s *Spec) InstallerCommand() []string {
	if len(s.Installer) > 0 {
		return s.Installer
	}
	return []string{"pip", "install"}
}
