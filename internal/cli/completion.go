package cli

import (
	"github.com/spf13/cobra"
)

// newCompletionCmd builds the shell-completion command tree.
func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Enable tab-completion for brchd commands",
		Long: `Generate shell completion scripts to enable tab-completion for brchd.

Tab-completion lets you press Tab to:
  - Auto-complete command names (e.g., "brchd d<Tab>" -> "daemon")
  - Auto-complete flag names (e.g., "brchd daemon --<Tab>" -> shows all flags)
  - See available subcommands

QUICK START:

  macOS with zsh (default on modern Macs):
    mkdir -p ~/.zsh/completions
    brchd completion zsh > ~/.zsh/completions/_brchd
    # Then add to ~/.zshrc: fpath=(~/.zsh/completions $fpath)
    # Restart terminal

  macOS with bash:
    brchd completion bash > $(brew --prefix)/etc/bash_completion.d/brchd
    # Restart terminal

  Linux with bash:
    brchd completion bash | sudo tee /etc/bash_completion.d/brchd
    # Restart terminal

For detailed instructions, use: brchd completion [shell] --help`,
	}

	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		Long: `Generate the autocompletion script for bash.

SETUP INSTRUCTIONS:

macOS:
  1. Install bash-completion (if not already installed):
       brew install bash-completion@2

  2. Generate completion script:
       brchd completion bash > $(brew --prefix)/etc/bash_completion.d/brchd

  3. Add to ~/.bash_profile (if not already there):
       [[ -r "$(brew --prefix)/etc/profile.d/bash_completion.sh" ]] && . "$(brew --prefix)/etc/profile.d/bash_completion.sh"

  4. Restart your terminal

Linux:
  1. Install bash-completion (if not already installed):
       # Ubuntu/Debian:
       sudo apt-get install bash-completion
       # RHEL/CentOS:
       sudo yum install bash-completion

  2. Generate completion script:
       brchd completion bash | sudo tee /etc/bash_completion.d/brchd

  3. Restart your terminal

QUICK TEST (temporary, current session only):
  source <(brchd completion bash)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenBashCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		Long: `Generate the autocompletion script for zsh.

SETUP INSTRUCTIONS:

macOS (modern Macs use zsh by default):
  1. Create completions directory:
       mkdir -p ~/.zsh/completions

  2. Generate completion script:
       brchd completion zsh > ~/.zsh/completions/_brchd

  3. Add to ~/.zshrc (if not already there):
       fpath=(~/.zsh/completions $fpath)
       autoload -Uz compinit && compinit

  4. Restart your terminal (or run: source ~/.zshrc)

Linux:
  1. Generate completion script:
       brchd completion zsh > "${fpath[1]}/_brchd"

  2. Restart your terminal

QUICK TEST (temporary, current session only):
  source <(brchd completion zsh)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenZshCompletion(cmd.OutOrStdout())
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		Long: `Generate the autocompletion script for fish.

SETUP INSTRUCTIONS:

  1. Generate completion script:
       brchd completion fish > ~/.config/fish/completions/brchd.fish

  2. Restart your terminal

QUICK TEST (temporary, current session only):
  brchd completion fish | source`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})

	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		Long: `Generate the autocompletion script for PowerShell.

SETUP INSTRUCTIONS (Windows):

  1. Find your PowerShell profile location:
       $PROFILE

  2. Generate completion script:
       brchd completion powershell >> $PROFILE

  3. Restart PowerShell

QUICK TEST (temporary, current session only):
  brchd completion powershell | Out-String | Invoke-Expression`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	return completionCmd
}
