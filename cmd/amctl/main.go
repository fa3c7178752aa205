package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	var (
		baseURL = envOr("AMCTL_URL", "http://localhost:8080")
		session = envOr("AMCTL_SESSION", "")
		cookie  = envOr("AMCTL_COOKIE_NAME", "admin_session")
		out     = envOr("AMCTL_OUT", "text")
	)

	cl := &client{HTTP: &http.Client{Timeout: 30 * time.Second}}
	// los flags se leen recién al ejecutar
	setup := func() {
		cl.BaseURL, cl.Session, cl.CookieName, cl.OutFormat = baseURL, session, cookie, out
	}

	root := &cobra.Command{
		Use:          "amctl",
		Short:        "CLI de operadores para authmanager (/admin y /vault/unlock-ip)",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) { setup() },
	}
	root.PersistentFlags().StringVar(&baseURL, "url", baseURL, "URL base del servicio (env AMCTL_URL)")
	root.PersistentFlags().StringVar(&session, "session", session, "Token de sesión admin (env AMCTL_SESSION)")
	root.PersistentFlags().StringVar(&cookie, "cookie-name", cookie, "Nombre de la cookie de sesión")
	root.PersistentFlags().StringVar(&out, "out", out, "Formato de salida: json|text")

	// cobra sólo corre el PersistentPreRun más cercano
	requireSession := func(*cobra.Command, []string) error {
		setup()
		if session == "" {
			return fmt.Errorf("falta sesión (flag --session o env AMCTL_SESSION); usar 'amctl login'")
		}
		return nil
	}

	root.AddCommand(loginCmd(cl))

	// databases
	dbCmd := &cobra.Command{Use: "databases", Short: "Bases conectadas", PersistentPreRunE: requireSession}
	dbCmd.AddCommand(dbListCmd(cl), dbCreateCmd(cl), dbDeactivateCmd(cl), mappingCmd(cl), banCmd(cl))

	// vault
	vaultCmd := &cobra.Command{Use: "vault", Short: "Bloqueo de IPs del vault", PersistentPreRunE: requireSession}
	vaultCmd.AddCommand(vaultLockCmd(cl), vaultUnlockCmd(cl), vaultEventsCmd(cl))

	root.AddCommand(dbCmd, vaultCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loginCmd(cl *client) *cobra.Command {
	var email, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Abre una sesión admin e imprime el token para AMCTL_SESSION",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || pass == "" {
				return fmt.Errorf("--email y --password son requeridos")
			}
			resp, body, err := cl.do(http.MethodPost, "/admin/session", map[string]string{"email": email, "password": pass})
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("login fallo: status=%d body=%s", resp.StatusCode, string(body))
			}
			for _, c := range resp.Cookies() {
				if c.Name == cl.CookieName {
					fmt.Printf("export AMCTL_SESSION=%s\n", c.Value)
					return nil
				}
			}
			return fmt.Errorf("login sin cookie %q", cl.CookieName)
		},
	}
	cmd.Flags().StringVar(&email, "email", os.Getenv("AMCTL_EMAIL"), "Email del operador")
	cmd.Flags().StringVar(&pass, "password", os.Getenv("AMCTL_PASSWORD"), "Password del operador")
	return cmd
}

func dbListCmd(cl *client) *cobra.Command {
	var active bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Lista bases conectadas",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/admin/databases"
			if active {
				path += "?active=true"
			}
			return cl.call("list", http.MethodGet, path, nil)
		},
	}
	cmd.Flags().BoolVar(&active, "active", false, "Sólo activas")
	return cmd
}

func dbCreateCmd(cl *client) *cobra.Command {
	var name, appName, connURL, table string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Conecta una base nueva (imprime la service-role key una sola vez)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name es requerido")
			}
			return cl.call("create", http.MethodPost, "/admin/databases", map[string]string{
				"name": name, "appName": appName, "connectionUrl": connURL, "userTable": table,
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Nombre interno")
	cmd.Flags().StringVar(&appName, "app-name", "", "Nombre visible en los mails")
	cmd.Flags().StringVar(&connURL, "connection-url", "", "postgres://... de la base del tenant (opcional)")
	cmd.Flags().StringVar(&table, "user-table", "", "Tabla de usuarios; vacía usa users")
	return cmd
}

func dbDeactivateCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Desactiva una base; su key deja de autenticar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("deactivate", http.MethodPost, "/admin/databases/"+url.PathEscape(args[0])+"/deactivate", nil)
		},
	}
}

func mappingCmd(cl *client) *cobra.Command {
	var m struct {
		ID, Email, Name, Username, Role, EmailVerified string
	}
	cmd := &cobra.Command{
		Use:   "mapping <id>",
		Short: "Define el mapeo de columnas de la tabla de usuarios",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("mapping", http.MethodPut, "/admin/databases/"+url.PathEscape(args[0])+"/schema-mapping", map[string]string{
				"idColumn":            m.ID,
				"emailColumn":         m.Email,
				"nameColumn":          m.Name,
				"usernameColumn":      m.Username,
				"roleColumn":          m.Role,
				"emailVerifiedColumn": m.EmailVerified,
			})
		},
	}
	cmd.Flags().StringVar(&m.ID, "id-column", "id", "Columna del id")
	cmd.Flags().StringVar(&m.Email, "email-column", "email", "Columna del email")
	cmd.Flags().StringVar(&m.Name, "name-column", "", "Columna del nombre")
	cmd.Flags().StringVar(&m.Username, "username-column", "", "Columna del username")
	cmd.Flags().StringVar(&m.Role, "role-column", "", "Columna del rol")
	cmd.Flags().StringVar(&m.EmailVerified, "email-verified-column", "", "Columna booleana de email verificado")
	return cmd
}

func banCmd(cl *client) *cobra.Command {
	var userID, reason, typ string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "ban <id>",
		Short: "Banea un usuario de la base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user es requerido")
			}
			payload := map[string]any{"userId": userID, "reason": reason}
			if typ != "" {
				payload["type"] = typ
			}
			if ttl > 0 {
				payload["type"] = "temporary"
				payload["expiresAt"] = time.Now().Add(ttl).UTC().Format(time.RFC3339)
			}
			return cl.call("ban", http.MethodPost, "/admin/databases/"+url.PathEscape(args[0])+"/bans", payload)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "Id externo del usuario")
	cmd.Flags().StringVar(&reason, "reason", "", "Motivo")
	cmd.Flags().StringVar(&typ, "type", "", "permanent|temporary")
	cmd.Flags().DurationVar(&ttl, "for", 0, "Duración de un ban temporal (ej. 72h)")
	return cmd
}

func vaultLockCmd(cl *client) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "lock <ip>",
		Short: "Bloquea una IP a mano",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("lock", http.MethodPost, "/admin/vault/lock-ip", map[string]string{"ipAddress": args[0], "reason": reason})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Motivo")
	return cmd
}

func vaultUnlockCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <ip>",
		Short: "Desbloquea una IP y resetea sus intentos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("unlock", http.MethodPost, "/vault/unlock-ip", map[string]string{"ipAddress": args[0]})
		},
	}
}

func vaultEventsCmd(cl *client) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "events [ip]",
		Short: "Muestra el log del vault (todas las IPs si no se indica una)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			if len(args) == 1 {
				q.Set("ip", args[0])
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			path := "/admin/vault/events"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}
			return cl.call("events", http.MethodGet, path, nil)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Máximo de eventos (default del servidor 100)")
	return cmd
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
