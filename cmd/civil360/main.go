// @title                       CIVIL360 API
// @version                     1.0
// @description                 Construction management API: authentication, equipment, purchase orders and notifications.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the session token.
package main

import "github.com/civil360/civil360-api/internal/cli"

func main() {
	cli.Execute()
}
