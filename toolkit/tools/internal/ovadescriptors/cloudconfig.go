// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package ovadescriptors

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

const cloudConfigHeader = `# Generated by ovaconverter.
# The top level settings are used as module and system configuration.
`

type CloudConfigParams struct {
	Distro          string
	DefaultUserName string
}

// CloudConfig is the subset of the cloud-init system configuration written into the guest.
type CloudConfig struct {
	Users              []string         `yaml:"users"`
	DisableRoot        bool             `yaml:"disable_root"`
	MountDefaultFields []*string        `yaml:"mount_default_fields,flow"`
	ResizeRootfsTmp    string           `yaml:"resize_rootfs_tmp"`
	SshPwauth          int              `yaml:"ssh_pwauth"`
	PreserveHostname   bool             `yaml:"preserve_hostname"`
	DatasourceList     []string         `yaml:"datasource_list,flow"`
	Datasource         CloudDatasources `yaml:"datasource"`
	InitModules        []string         `yaml:"cloud_init_modules"`
	ConfigModules      []string         `yaml:"cloud_config_modules"`
	FinalModules       []string         `yaml:"cloud_final_modules"`
	SystemInfo         CloudSystemInfo  `yaml:"system_info"`
}

type CloudDatasources struct {
	ConfigDrive CloudConfigDrive `yaml:"ConfigDrive"`
}

type CloudConfigDrive struct {
	Dsmode string `yaml:"dsmode"`
}

type CloudSystemInfo struct {
	Distro      string           `yaml:"distro"`
	DefaultUser CloudDefaultUser `yaml:"default_user"`
	Paths       CloudPaths       `yaml:"paths"`
	SshSvcname  string           `yaml:"ssh_svcname"`
}

type CloudDefaultUser struct {
	Name       string   `yaml:"name"`
	LockPasswd bool     `yaml:"lock_passwd"`
	Gecos      string   `yaml:"gecos"`
	Groups     []string `yaml:"groups,flow"`
	Sudo       []string `yaml:"sudo,flow"`
	Shell      string   `yaml:"shell"`
}

type CloudPaths struct {
	CloudDir     string `yaml:"cloud_dir"`
	TemplatesDir string `yaml:"templates_dir"`
}

func ptrTo[T any](value T) *T {
	return &value
}

// NewCloudConfig builds the PowerVC flavored cloud-init configuration.
func NewCloudConfig(params CloudConfigParams) CloudConfig {
	return CloudConfig{
		Users:              []string{"default"},
		DisableRoot:        false,
		MountDefaultFields: []*string{nil, nil, ptrTo("auto"), ptrTo("defaults,nofail"), ptrTo("0"), ptrTo("2")},
		ResizeRootfsTmp:    "/dev",
		SshPwauth:          0,
		PreserveHostname:   false,
		DatasourceList:     []string{"ConfigDrive", "None"},
		Datasource: CloudDatasources{
			ConfigDrive: CloudConfigDrive{Dsmode: "local"},
		},
		InitModules: []string{
			"migrator", "seed_random", "bootcmd", "write-files", "growpart", "resizefs", "disk_setup",
			"mounts", "set_hostname", "update_hostname", "update_etc_hosts", "ca-certs", "rsyslog",
			"users-groups", "ssh",
		},
		ConfigModules: []string{
			"reset_rmc", "refresh_rmc_and_interface", "ssh-import-id", "locale", "set-passwords",
			"spacewalk", "yum-add-repo", "ntp", "timezone", "disable-ec2-metadata", "runcmd",
		},
		FinalModules: []string{
			"package-update-upgrade-install", "puppet", "chef", "mcollective", "salt-minion",
			"rightscale_userdata", "scripts-vendor", "scripts-per-once", "scripts-per-boot",
			"scripts-per-instance", "scripts-user", "ssh-authkey-fingerprints", "keys-to-console",
			"phone-home", "final-message", "power-state-change",
		},
		SystemInfo: CloudSystemInfo{
			Distro: params.Distro,
			DefaultUser: CloudDefaultUser{
				Name:       params.DefaultUserName,
				LockPasswd: true,
				Gecos:      params.DefaultUserName + " Cloud User",
				Groups:     []string{"wheel", "adm", "systemd-journal"},
				Sudo:       []string{"ALL=(ALL) NOPASSWD:ALL"},
				Shell:      "/bin/bash",
			},
			Paths: CloudPaths{
				CloudDir:     "/var/lib/cloud/",
				TemplatesDir: "/etc/cloud/templates/",
			},
			SshSvcname: "sshd",
		},
	}
}

// RenderCloudConfig renders the cloud-init configuration as YAML.
func RenderCloudConfig(params CloudConfigParams) (string, error) {
	if params.Distro == "" || params.DefaultUserName == "" {
		return "", fmt.Errorf("%w: cloud-init distro and default user are required", ErrInvalidValue)
	}

	buffer := &bytes.Buffer{}
	buffer.WriteString(cloudConfigHeader)

	encoder := yaml.NewEncoder(buffer)
	encoder.SetIndent(2)
	err := encoder.Encode(NewCloudConfig(params))
	if err != nil {
		return "", fmt.Errorf("failed to encode cloud-init config:\n%w", err)
	}

	err = encoder.Close()
	if err != nil {
		return "", fmt.Errorf("failed to encode cloud-init config:\n%w", err)
	}

	return buffer.String(), nil
}
