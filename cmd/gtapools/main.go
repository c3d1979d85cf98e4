package main

import (
	"gtapools-backend/cmd/gtapools/commands"
	"gtapools-backend/lib/serviceutil"
)

func main() {
	commands.ExecuteContext(serviceutil.SignalContext())
}
