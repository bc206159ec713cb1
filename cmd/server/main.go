package main

func main() {
	RegisterCommands(
		NewServeCommand(),
		NewMigrateCommand(),
		NewSweepCommand(),
		NewTokenCommand(),
	)

	Execute()
}
