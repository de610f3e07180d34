package csproj

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

var ErrUnsupported = errors.New("not a directory, solution or project file")

// Kind is what an inspected path points to
type Kind int

const (
	Directory Kind = iota
	SolutionFile
	ProjectFile
)

func (k Kind) String() string {
	switch k {
	case Directory:
		return "directory"
	case SolutionFile:
		return "solution"
	case ProjectFile:
		return "project"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// KindOf classifies path. Anything other than a directory, a .sln or a
// .csproj file is ErrUnsupported.
func KindOf(path string) (Kind, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return Directory, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sln":
		return SolutionFile, nil
	case ".csproj":
		return ProjectFile, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupported, path)
}

// Project holds the build targets declared by a .csproj file
type Project struct {
	Path         string
	AssemblyName string
	// OutputType is Exe, WinExe or Library
	OutputType string
	// Configurations maps a configuration to its platforms, sorted
	Configurations map[string][]string
	// DebugTypes maps configuration then platform to the debug information kind
	DebugTypes map[string]map[string]string
}

// OutputName is the file produced by building the project
func (p Project) OutputName() string {
	switch p.OutputType {
	case "Exe", "WinExe":
		return p.AssemblyName + ".exe"
	case "Library":
		return p.AssemblyName + ".dll"
	}
	return p.AssemblyName
}

type inspector func(path string) ([]Project, error)

var inspectors = map[Kind]inspector{
	Directory:    inspectDirectory,
	SolutionFile: inspectSolution,
	ProjectFile:  inspectProject,
}

// Inspect returns every project reachable from path: the projects of each
// solution in a directory, the projects of a solution, or a single project.
func Inspect(path string) ([]Project, error) {
	kind, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	return inspectors[kind](path)
}

func inspectDirectory(dir string) ([]Project, error) {
	solutions, err := FindSolutions(dir)
	if err != nil {
		return nil, err
	}
	var projects []Project
	for _, sln := range solutions {
		p, err := inspectSolution(sln)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p...)
	}
	return projects, nil
}

func inspectSolution(sln string) ([]Project, error) {
	paths, err := ParseSolution(sln)
	if err != nil {
		return nil, err
	}
	projects := make([]Project, 0, len(paths))
	for _, path := range paths {
		p, err := ParseProject(path)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

func inspectProject(path string) ([]Project, error) {
	p, err := ParseProject(path)
	if err != nil {
		return nil, err
	}
	return []Project{p}, nil
}

// FindSolutions lists the .sln files directly inside dir
func FindSolutions(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".sln") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

var slnProject = regexp.MustCompile(`(?m)^Project\("\{.*?\}"\) = ".*?", "(.*?)", "\{.*?\}"\r?$`)

// ParseSolution returns the paths of the C# projects a solution references,
// relative to the working directory
func ParseSolution(sln string) ([]string, error) {
	data, err := os.ReadFile(sln)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(sln)
	var out []string
	for _, m := range slnProject.FindAllStringSubmatch(string(data), -1) {
		if !strings.Contains(m[1], ".csproj") {
			continue
		}
		out = append(out, filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(m[1], `\`, "/"))))
	}
	return out, nil
}

var configCondition = regexp.MustCompile(`^'\$\(Configuration\)\|\$\(Platform\)' == '(.*?)\|(.*?)'$`)

// parseCondition extracts configuration and platform from a PropertyGroup condition
func parseCondition(condition string) (string, string, bool) {
	m := configCondition.FindStringSubmatch(strings.TrimSpace(condition))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

type projectXML struct {
	PropertyGroups []propertyGroupXML `xml:"PropertyGroup"`
}

type propertyGroupXML struct {
	Condition    string   `xml:"Condition,attr"`
	AssemblyName []string `xml:"AssemblyName"`
	OutputType   []string `xml:"OutputType"`
	DebugType    []string `xml:"DebugType"`
}

func ParseProject(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, err
	}
	var doc projectXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Project{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	p := Project{
		Path:           path,
		Configurations: map[string][]string{},
		DebugTypes:     map[string]map[string]string{},
	}
	platforms := map[string]map[string]bool{}
	for _, g := range doc.PropertyGroups {
		if p.AssemblyName == "" && len(g.AssemblyName) > 0 {
			p.AssemblyName = strings.TrimSpace(g.AssemblyName[0])
		}
		if p.OutputType == "" && len(g.OutputType) > 0 {
			p.OutputType = strings.TrimSpace(g.OutputType[0])
		}
		if g.Condition == "" {
			continue
		}
		config, platform, ok := parseCondition(g.Condition)
		if !ok {
			continue
		}
		if config != "" && platform != "" {
			if platforms[config] == nil {
				platforms[config] = map[string]bool{}
			}
			platforms[config][platform] = true
		}
		for _, debugType := range g.DebugType {
			if p.DebugTypes[config] == nil {
				p.DebugTypes[config] = map[string]string{}
			}
			p.DebugTypes[config][platform] = strings.TrimSpace(debugType)
		}
	}
	for config, set := range platforms {
		list := make([]string, 0, len(set))
		for platform := range set {
			list = append(list, platform)
		}
		sort.Strings(list)
		p.Configurations[config] = list
	}
	return p, nil
}

// OutputNames returns the file produced by every project reachable from path
func OutputNames(path string) ([]string, error) {
	projects, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.OutputName())
	}
	return names, nil
}

func OutputTypes(path string) ([]string, error) {
	projects, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	types := make([]string, 0, len(projects))
	for _, p := range projects {
		types = append(types, p.OutputType)
	}
	return types, nil
}

// DebugTypes returns the debug types of every reachable project, keyed by project path
func DebugTypes(path string) (map[string]map[string]map[string]string, error) {
	projects, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]map[string]string, len(projects))
	for _, p := range projects {
		out[p.Path] = p.DebugTypes
	}
	return out, nil
}

// Configurations returns the configurations of every reachable project, keyed by project path
func Configurations(path string) (map[string]map[string][]string, error) {
	projects, err := Inspect(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string][]string, len(projects))
	for _, p := range projects {
		out[p.Path] = p.Configurations
	}
	return out, nil
}
