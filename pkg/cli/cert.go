package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	mocktls "github.com/getmockd/mockhandler/pkg/tls"
)

type certFlags struct {
	certFile string
	keyFile  string
	hosts    []string
}

var certFlagVals certFlags

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Write a self-signed key and certificate for the HTTPS listener",
	Example: `  # Write server.crt and server.key for localhost
  mockhandler cert

  # Include extra host names
  mockhandler cert --host api.test --host 10.0.0.5 --cert certs/api.crt --key certs/api.key`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCert(cmd.OutOrStdout(), certFlagVals)
	},
}

func init() {
	certCmd.Flags().StringVar(&certFlagVals.certFile, "cert", "server.crt", "Certificate output path")
	certCmd.Flags().StringVar(&certFlagVals.keyFile, "key", "server.key", "Private key output path")
	certCmd.Flags().StringSliceVar(&certFlagVals.hosts, "host", nil, "Additional DNS name or IP address (repeatable)")
	rootCmd.AddCommand(certCmd)
}

func runCert(out io.Writer, f certFlags) error {
	cert, err := mocktls.GenerateAndSave(mocktls.ConfigForHosts(f.hosts...), f.certFile, f.keyFile)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "wrote %s and %s (valid until %s)\n",
		f.certFile, f.keyFile, cert.Certificate.NotAfter.Format("2006-01-02 15:04"))
	return err
}
