package config

import (
	"os"
	"path/filepath"
	"strconv"
)

// SystemRuntimeDir holds the socket when volctrld runs as a system unit.
const SystemRuntimeDir = "/run/volctrld"

// GetRuntimeDir returns $XDG_RUNTIME_DIR, or /run/user/<uid> when unset.
func GetRuntimeDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return filepath.Join("/run/user", strconv.Itoa(os.Getuid()))
}

// SocketCandidates lists the places a daemon socket may live, most specific
// first: an explicit VOLCTRLD_SERVER_SOCKET_PATH, the user runtime dir, then
// the system unit's runtime dir.
func SocketCandidates() []string {
	var paths []string
	if p := os.Getenv(EnvPrefix + "_SERVER_SOCKET_PATH"); p != "" {
		paths = append(paths, p)
	}
	return append(paths,
		filepath.Join(GetRuntimeDir(), SocketFilename),
		filepath.Join(SystemRuntimeDir, SocketFilename),
	)
}

// GetRuntimeSocketPath returns the first existing candidate socket. When
// none exists yet it returns the first candidate, which is where a daemon
// started by this user would listen.
func GetRuntimeSocketPath() string {
	candidates := SocketCandidates()
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && fi.Mode()&os.ModeSocket != 0 {
			return p
		}
	}
	return candidates[0]
}

// GetConfigBaseDir returns the per-user config directory. A system unit
// points XDG_CONFIG_HOME at SystemConfigDir, which is used as is.
func GetConfigBaseDir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	switch dir {
	case SystemConfigDir:
		return dir
	case "":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", ConfigDirName)
	default:
		return filepath.Join(dir, ConfigDirName)
	}
}

// ConfigSearchPaths lists the directories searched for volctrld.yaml.
func ConfigSearchPaths() []string {
	base := GetConfigBaseDir()
	if base == SystemConfigDir {
		return []string{base}
	}
	return []string{base, SystemConfigDir}
}

// GetDaemonConfigPath returns the per-user daemon config file path.
func GetDaemonConfigPath() string {
	return filepath.Join(GetConfigBaseDir(), DaemonConfigFilename)
}

// GetClientConfigPath returns the volctrlctl config file path.
func GetClientConfigPath() string {
	return filepath.Join(GetConfigBaseDir(), ClientConfigFilename)
}
