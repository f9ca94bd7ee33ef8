package root

import (
	"github.com/trimly-app/trimly-saas/apps/cli/cmd/auth"
	"github.com/trimly-app/trimly-saas/apps/cli/cmd/bootstrap"
	tenantcmd "github.com/trimly-app/trimly-saas/apps/cli/cmd/tenant"
)

func init() {
	Root().AddCommand(auth.Command())
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(tenantcmd.Command())
}
