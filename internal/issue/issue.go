// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	FileNotFoundId Id = iota + 1
	ConfigLoadFailedId
	InvalidRuntimeModeId
	ShellNotFoundId
	BundleNotFoundId
	DeclarationParseFailedId
	ExecutionFailedId
	ProbeOutputInvalidId
	InvariantViolatedId
	VenvFailedId
	PackageRoundTripFailedId
	ModuleImportFailedId
	PermissionDeniedId
	WorkDirBusyId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also:\n"
		for _, link := range i.docLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
		for _, link := range i.extLinks {
			extraMd += "- [" + string(link) + "](" + string(link) + ")\n"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	fileNotFoundIssue = &Issue{
		id: FileNotFoundId,
		mdMsg: `
# File not found!

A file needed by the check could not be found.

## Things you can try:
- Check the path for typos
- Paths in the configuration are resolved against the current directory unless absolute
- Run with verbose mode to see which file was looked up:
~~~
$ bundlecheck --verbose check
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be read or does not match the schema.

## Things you can try:
- Show where the configuration is looked up:
~~~
$ bundlecheck config path
~~~

- Write a fresh default file and compare:
~~~
$ bundlecheck config init
$ bundlecheck config show
~~~

## Example configuration:
~~~cue
work_dir: "/tmp/test-linuxdeploy-plugin-python"
bundles: [
  {tag: "python3", version: "3.7.3"},
  {tag: "python3.8", declaration: "appimage/recipes/python3.8.sh"},
]
~~~`,
		extLinks: []HttpLink{"https://cuelang.org/docs/"},
	}

	invalidRuntimeModeIssue = &Issue{
		id: InvalidRuntimeModeId,
		mdMsg: `
# Invalid runtime mode!

Commands are run either by the host shell or by the embedded shell interpreter.

## Valid runtimes:
- **native**: runs each command through bash (or sh) on the host
- **virtual**: runs each command in the built-in POSIX shell interpreter

## Things you can try:
~~~
$ bundlecheck check --runtime native
~~~`,
	}

	shellNotFoundIssue = &Issue{
		id: ShellNotFoundId,
		mdMsg: `
# Shell not found!

The native runtime needs bash or sh on the host.

## Things you can try:
- Install bash, or point the configuration at a shell:
~~~cue
shell: "/usr/bin/bash"
~~~

- Or use the embedded interpreter instead:
~~~
$ bundlecheck check --runtime virtual
~~~`,
	}

	bundleNotFoundIssue = &Issue{
		id: BundleNotFoundId,
		mdMsg: `
# Bundle not found!

A bundle named ` + "`<tag>-<arch>.AppImage`" + ` was expected in the bundle directory.

## Things you can try:
- Build the bundle first, then rerun the check
- Point bundlecheck at the directory holding the bundles:
~~~
$ bundlecheck check --bundle-dir ./appimage
~~~

- Set ARCH if the bundle was built for another architecture tag
- Make sure the bundle is executable:
~~~
$ chmod +x python3-x86_64.AppImage
~~~`,
		extLinks: []HttpLink{"https://github.com/linuxdeploy/linuxdeploy"},
	}

	declarationParseFailedIssue = &Issue{
		id: DeclarationParseFailedId,
		mdMsg: `
# Could not read the bundle version!

The version declaration must be a shell file assigning ` + "`PYTHON_VERSION`" + `.

## Expected form:
~~~sh
export PYTHON_VERSION="3.7.3"
~~~

## Things you can try:
- Check the file with:
~~~
$ bundlecheck declaration appimage/recipes/python3.sh
~~~

- Or give the version inline in the configuration`,
	}

	executionFailedIssue = &Issue{
		id: ExecutionFailedId,
		mdMsg: `
# A command failed!

An external command run during the check exited with a non-zero status.
The check stops at the first failure; its output is shown above.

## Things you can try:
- Rerun with verbose mode to see every command line:
~~~
$ bundlecheck --verbose check
~~~

- Run the failing command by hand from the work directory`,
	}

	probeOutputInvalidIssue = &Issue{
		id: ProbeOutputInvalidId,
		mdMsg: `
# The configuration probe returned no usable record!

The interpreter ran the probe script but the record file is missing or malformed.

## Things you can try:
- Run the probe alone and inspect the record:
~~~
$ bundlecheck probe ./python3-x86_64.AppImage --format yaml
~~~

- Check that the work directory is writable`,
	}

	invariantViolatedIssue = &Issue{
		id: InvariantViolatedId,
		mdMsg: `
# The bundle does not behave like a standard install!

The runtime configuration reported by the interpreter broke one of the
portable-bundle invariants (version, executable, prefix, site-packages or
user site visibility).

## Things you can try:
- Compare the record with the expected values:
~~~
$ bundlecheck probe ./python3-x86_64.AppImage
~~~

- Check that the bundle's launcher sets ` + "`PYTHONHOME`" + ` and the executable path before starting Python`,
	}

	venvFailedIssue = &Issue{
		id: VenvFailedId,
		mdMsg: `
# Virtual environment check failed!

A virtual environment created from the bundle is missing an expected file
or does not isolate itself from the bundle.

## Things you can try:
- Create the environment by hand and inspect it:
~~~
$ ./python3-x86_64.AppImage -m venv ENV
$ . ENV/bin/activate
$ python -m ensurepip
~~~`,
	}

	packageRoundTripFailedIssue = &Issue{
		id: PackageRoundTripFailedId,
		mdMsg: `
# Package round trip failed!

The test package was installed but its entry point did not report the
expected interpreter.

## Things you can try:
- Install and run the package by hand:
~~~
$ ./python3-x86_64.AppImage -m pip install --user test-pip-install
$ test-pip-install
~~~

- Check that ` + "`~/.local/bin`" + ` is on PATH`,
		extLinks: []HttpLink{"https://pypi.org/project/test-pip-install/"},
	}

	moduleImportFailedIssue = &Issue{
		id: ModuleImportFailedId,
		mdMsg: `
# A standard library module is missing!

The bundle could not import a module every complete Python install provides.
This usually means a build dependency (ssl, sqlite, tk, ...) was absent when
the bundle was built.

## Things you can try:
- List the modules that are checked:
~~~
$ bundlecheck modules --major 3
~~~

- Skip a module you do not need:
~~~cue
modules: {skip: ["tkinter"]}
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

The work directory or the isolated home directory could not be written.

## Things you can try:
- Use a directory you own:
~~~
$ bundlecheck check --work-dir "$HOME/bundlecheck"
~~~`,
	}

	workDirBusyIssue = &Issue{
		id: WorkDirBusyId,
		mdMsg: `
# The work directory is in use!

Another bundlecheck run holds the lock on the work directory. Runs sharing a
work directory remove each other's virtual environments and probe records.

## Things you can try:
- Wait for the other run to finish
- Give this run its own directory:
~~~
$ bundlecheck check --work-dir /tmp/bundlecheck-2
~~~`,
	}

	issues = map[Id]*Issue{
		fileNotFoundIssue.Id():           fileNotFoundIssue,
		configLoadFailedIssue.Id():       configLoadFailedIssue,
		invalidRuntimeModeIssue.Id():     invalidRuntimeModeIssue,
		shellNotFoundIssue.Id():          shellNotFoundIssue,
		bundleNotFoundIssue.Id():         bundleNotFoundIssue,
		declarationParseFailedIssue.Id(): declarationParseFailedIssue,
		executionFailedIssue.Id():        executionFailedIssue,
		probeOutputInvalidIssue.Id():     probeOutputInvalidIssue,
		invariantViolatedIssue.Id():      invariantViolatedIssue,
		venvFailedIssue.Id():             venvFailedIssue,
		packageRoundTripFailedIssue.Id(): packageRoundTripFailedIssue,
		moduleImportFailedIssue.Id():     moduleImportFailedIssue,
		permissionDeniedIssue.Id():       permissionDeniedIssue,
		workDirBusyIssue.Id():            workDirBusyIssue,
	}
)

// Values returns every issue, ordered by Id.
func Values() []*Issue {
	var all []*Issue
	for _, i := range maps.Values(issues) {
		all = append(all, i)
	}
	slices.SortFunc(all, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return all
}

func Get(id Id) *Issue {
	return issues[id]
}
