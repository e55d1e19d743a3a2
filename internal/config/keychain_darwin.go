//go:build darwin

package config

import "os/exec"

// keychainLabel is what Keychain Access shows for the stored API token.
const keychainLabel = "visitlog API token"

func keychainGet(service, account string) ([]byte, error) {
	return exec.Command(
		"security", "find-generic-password",
		"-s", service,
		"-a", account,
		"-w",
	).Output()
}

func keychainSet(service, account, value string) error {
	return exec.Command(
		"security", "add-generic-password",
		"-U",
		"-l", keychainLabel,
		"-s", service,
		"-a", account,
		"-w", value,
	).Run()
}
