package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cliente_backend/internal/cli/output"
	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/dashboard"
)

// noticedError marks an error the board already showed as a notice.
type noticedError struct{ err error }

func (e *noticedError) Error() string { return e.err.Error() }
func (e *noticedError) Unwrap() error { return e.err }

func noticed(err error) error {
	if err == nil {
		return nil
	}
	return &noticedError{err: err}
}

// AlreadyReported reports whether err was already printed as a notice.
func AlreadyReported(err error) bool {
	var n *noticedError
	return errors.As(err, &n)
}

func (a *app) board() *dashboard.Board {
	return dashboard.NewBoard(a.api, a.printer)
}

func renderRows(p *output.Printer, rows []dashboard.Row) error {
	if len(rows) == 0 {
		p.Info("no clientes yet, add one with `clientes create`")
		return nil
	}
	table := output.NewTable(p.Out(), []string{"id", "nome", "email", "telefone", "endereco", "created", "state"})
	for _, r := range rows {
		c := r.Cliente
		created := ""
		if !c.CreatedAt.IsZero() {
			created = c.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		table.AddRow(c.ID, c.Nome, c.Email, c.Telefone, c.Endereco, created, p.StateBadge(r.State.String()))
	}
	return table.Render()
}

func newListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List your clientes, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b := a.board()
			if err := b.Load(cmd.Context()); err != nil {
				return noticed(err)
			}
			rows := b.Snapshot().Rows
			if asJSON {
				list := make([]entity.Cliente, 0, len(rows))
				for _, r := range rows {
					list = append(list, r.Cliente)
				}
				enc := json.NewEncoder(a.printer.Out())
				enc.SetIndent("", "  ")
				return enc.Encode(list)
			}
			return renderRows(a.printer, rows)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

type clienteFlags struct {
	nome, email, telefone, endereco string
}

func (f *clienteFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.nome, "nome", "", "name")
	cmd.Flags().StringVar(&f.email, "email", "", "e-mail")
	cmd.Flags().StringVar(&f.telefone, "telefone", "", "phone number")
	cmd.Flags().StringVar(&f.endereco, "endereco", "", "address")
}

// mergeInto overwrites the fields whose flag was given on the command line.
func (f *clienteFlags) mergeInto(cmd *cobra.Command, in *entity.ClienteInput) bool {
	changed := false
	set := func(flag, value string, dst *string) {
		if cmd.Flags().Changed(flag) {
			*dst = value
			changed = true
		}
	}
	set("nome", f.nome, &in.Nome)
	set("email", f.email, &in.Email)
	set("telefone", f.telefone, &in.Telefone)
	set("endereco", f.endereco, &in.Endereco)
	return changed
}

func newCreateCmd(a *app) *cobra.Command {
	var flags clienteFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a cliente",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var form entity.ClienteInput
			flags.mergeInto(cmd, &form)

			b := a.board()
			b.OpenCreate()
			if err := b.Submit(cmd.Context(), form); err != nil {
				return noticed(err)
			}
			a.printer.Success("cliente %s created", form.Nome)
			return renderRows(a.printer, b.Snapshot().Rows)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var flags clienteFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a cliente",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			b := a.board()
			if err := b.Load(cmd.Context()); err != nil {
				return noticed(err)
			}
			if err := b.OpenEdit(id); err != nil {
				return fmt.Errorf("cliente %s: %w", id, err)
			}
			target := b.Snapshot().EditTarget
			form := entity.ClienteInput{
				Nome:     target.Nome,
				Email:    target.Email,
				Telefone: target.Telefone,
				Endereco: target.Endereco,
			}
			if !flags.mergeInto(cmd, &form) {
				b.CloseForm()
				return errors.New("nothing to update, pass at least one of --nome --email --telefone --endereco")
			}
			if err := b.Submit(cmd.Context(), form); err != nil {
				return noticed(err)
			}
			a.printer.Success("cliente %s updated", id)
			return renderRows(a.printer, b.Snapshot().Rows)
		},
	}
	flags.bind(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a cliente",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			b := a.board()
			if err := b.Load(cmd.Context()); err != nil {
				return noticed(err)
			}

			confirmed := false
			confirm := func() bool {
				if yes {
					confirmed = true
					return true
				}
				confirmed = a.confirm(cmd.ErrOrStderr(), fmt.Sprintf("Delete cliente %s?", id))
				return confirmed
			}
			err := b.Delete(cmd.Context(), id, confirm)
			switch {
			case errors.Is(err, dashboard.ErrRowNotFound):
				return fmt.Errorf("cliente %s: %w", id, err)
			case err != nil:
				return noticed(err)
			case !confirmed:
				a.printer.Info("cancelled")
				return nil
			}
			a.printer.Success("cliente %s deleted", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow your clientes live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			feed, err := a.api.Watch(ctx)
			if err != nil {
				return err
			}

			b := a.board()
			b.Watch(ctx, feed.Lists, func(s dashboard.Snapshot) {
				a.printer.Header(fmt.Sprintf("clientes (%s)", time.Now().Format("15:04:05")))
				if err := renderRows(a.printer, s.Rows); err != nil {
					a.printer.Warning("render failed: %v", err)
				}
			})

			if ctx.Err() != nil {
				return nil
			}
			return feed.Err()
		},
	}
}
