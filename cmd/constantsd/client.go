package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/constants_registry/internal/app/domain/constant"
	"github.com/R3E-Network/constants_registry/internal/httputil"
)

const defaultServer = "http://localhost:8787"

var clientFlags = struct {
	server  string
	token   string
	timeout time.Duration
}{}

func newClient() *httputil.Client {
	token := clientFlags.token
	if token == "" {
		token = os.Getenv("CONSTANTS_AUTH_TOKEN")
	}
	server := clientFlags.server
	if server == "" {
		server = os.Getenv("CONSTANTS_SERVER")
	}
	if server == "" {
		server = defaultServer
	}
	return httputil.NewClient(httputil.ClientConfig{
		BaseURL: server,
		Token:   token,
		Timeout: clientFlags.timeout,
	})
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&clientFlags.server, "server", "", "registry base URL (default $CONSTANTS_SERVER or "+defaultServer+")")
	cmd.Flags().StringVar(&clientFlags.token, "token", "", "write token (default $CONSTANTS_AUTH_TOKEN)")
	cmd.Flags().DurationVar(&clientFlags.timeout, "timeout", 30*time.Second, "request timeout")
}

func clientCommands() []*cobra.Command {
	cmds := []*cobra.Command{
		domainsCommand(),
		queryCommand(),
		tagsCommand(),
		putDomainCommand(),
		putConstantCommand(),
		deleteDomainCommand(),
		deleteConstantCommand(),
	}
	for _, cmd := range cmds {
		addClientFlags(cmd)
	}
	return cmds
}

func domainsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var domains []constant.Domain
			if err := getJSON(cmd, "/api/domains", &domains); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), domains)
		},
	}
}

func queryCommand() *cobra.Command {
	var (
		name  string
		value string
		tags  []string
		hex   bool
	)
	cmd := &cobra.Command{
		Use:   "query DOMAIN",
		Short: "Look up constants in a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			// Presence matters to the server, so only flags the user set are sent.
			if cmd.Flags().Changed("name") {
				params.Set("name", name)
			}
			if cmd.Flags().Changed("value") {
				params.Set("value", value)
			}
			for _, tag := range tags {
				params.Add("tags", tag)
			}
			if hex {
				params.Set("hex", "")
			}

			path := httputil.DomainPath(args[0])
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var constants []constant.Constant
			if err := getJSON(cmd, path, &constants); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), constants)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "exact constant name")
	cmd.Flags().StringVar(&value, "value", "", "value prefix")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag to match (repeatable)")
	cmd.Flags().BoolVar(&hex, "hex", false, "match the value prefix against the hexadecimal rendering")
	return cmd
}

func tagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tags DOMAIN",
		Short: "List the tags used in a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var tags []*string
			if err := getJSON(cmd, httputil.DomainPath(args[0], "tags"), &tags); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), tags)
		},
	}
}

func putDomainCommand() *cobra.Command {
	var in constant.DomainInput
	var link string
	cmd := &cobra.Command{
		Use:   "put-domain DOMAIN",
		Short: "Create or update a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Domain = args[0]
			if cmd.Flags().Changed("link") {
				in.Link = &link
			}
			resp, err := newClient().Put(cmd.Context(), "/api/domains", in)
			if err != nil {
				return err
			}
			var out map[string]string
			if err := httputil.DecodeResponse(resp, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "domain description")
	cmd.Flags().StringVar(&link, "link", "", "reference link")
	return cmd
}

func putConstantCommand() *cobra.Command {
	var (
		in      constant.ConstantInput
		value   string
		numeric bool
		tags    string
		link    string
	)
	cmd := &cobra.Command{
		Use:   "put-constant DOMAIN NAME",
		Short: "Create or update a constant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[1]
			if numeric {
				n, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return fmt.Errorf("--value %q is not a number: %w", value, err)
				}
				in.Value = constant.NumberValue(n)
			} else {
				in.Value = constant.StringValue(value)
			}
			if cmd.Flags().Changed("tags") {
				in.Tags = &tags
			}
			if cmd.Flags().Changed("link") {
				in.Link = &link
			}

			resp, err := newClient().Put(cmd.Context(), httputil.DomainPath(args[0]), in)
			if err != nil {
				return err
			}
			var out map[string]string
			if err := httputil.DecodeResponse(resp, &out); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "constant value")
	cmd.Flags().BoolVar(&numeric, "numeric", false, "send the value as a JSON number")
	cmd.Flags().StringVar(&tags, "tags", "", "tag label")
	cmd.Flags().StringVar(&in.Description, "description", "", "constant description")
	cmd.Flags().StringVar(&link, "link", "", "reference link")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func deleteDomainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-domain DOMAIN",
		Short: "Delete a domain without constants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().Delete(cmd.Context(), httputil.DomainPath(args[0]))
			if err != nil {
				return err
			}
			return httputil.DecodeResponse(resp, nil)
		},
	}
}

func deleteConstantCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-constant DOMAIN NAME",
		Short: "Delete a constant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newClient().Delete(cmd.Context(), httputil.DomainPath(args[0], args[1]))
			if err != nil {
				return err
			}
			return httputil.DecodeResponse(resp, nil)
		},
	}
}

func getJSON(cmd *cobra.Command, path string, target interface{}) error {
	resp, err := newClient().Get(cmd.Context(), path)
	if err != nil {
		return err
	}
	return httputil.DecodeResponse(resp, target)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
