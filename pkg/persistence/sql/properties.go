package sql

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gluufederation/containerlib-go/pkg/errors"
	"github.com/gluufederation/containerlib-go/pkg/manager"
	"github.com/gluufederation/containerlib-go/pkg/utils"
)

// RenderProperties renders the SQL properties template at src into dest,
// filling the rdbm_* placeholders from the environment and encoding the
// password with the deployment-wide salt.
func RenderProperties(mgr *manager.Manager, src, dest string) error {
	adapter, err := NewAdapter(GetDialect())
	if err != nil {
		return err
	}

	salt, err := mgr.Secret.Get("encoded_salt")
	if err != nil {
		return err
	}
	encodedPassword, err := utils.EncodeText(GetPassword(), salt)
	if err != nil {
		return err
	}

	tmpl, err := os.ReadFile(src)
	if err != nil {
		return errors.NewError(errors.ErrCodeConfigLoad,
			fmt.Sprintf("failed to read properties template: %v", err)).
			WithComponent("sql").
			WithContext("path", src).
			WithCause(err)
	}

	rendered := utils.SafeRender(string(tmpl), map[string]string{
		"rdbm_db":           GetDatabase(),
		"rdbm_schema":       adapter.SchemaName(GetDatabase()),
		"rdbm_type":         adapter.TypeName(),
		"rdbm_host":         GetHost(),
		"rdbm_port":         strconv.Itoa(GetPort()),
		"rdbm_user":         GetUser(),
		"rdbm_password_enc": encodedPassword,
		"server_time_zone":  GetTimezone(),
	})

	if err := os.WriteFile(dest, []byte(rendered), 0600); err != nil {
		return errors.NewError(errors.ErrCodeConfigSave,
			fmt.Sprintf("failed to write properties file: %v", err)).
			WithComponent("sql").
			WithContext("path", dest).
			WithCause(err)
	}
	return nil
}
