// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv or json",
		Value:   "text",
	}
}

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a default config file to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the session lifecycle
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your FlowMaster session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with a username or email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Username or email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("FLOWMASTER_PASSWORD"),
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and log in",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("FLOWMASTER_PASSWORD"),
					},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored session token",
				Action: r.AuthLogout,
			},
			{
				Name:  "whoami",
				Usage: "Show the signed-in user and token expiry",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthWhoami,
			},
		},
	}
}

// tasksCommand handles the todo, watch and later lists
func tasksCommand(r *Runner) *cli.Command {
	taskFlags := func() []cli.Flag {
		return []cli.Flag{
			&cli.StringFlag{
				Name:  "description",
				Usage: "Longer description",
			},
			&cli.IntFlag{
				Name:  "priority",
				Usage: "Priority, 1 is highest",
			},
			&cli.StringFlag{
				Name:  "due",
				Usage: "Due date (YYYY-MM-DD)",
			},
			&cli.StringSliceFlag{
				Name:    "tag",
				Aliases: []string{"t"},
				Usage:   "Tag; repeat for several",
			},
		}
	}

	return &cli.Command{
		Name:    "tasks",
		Aliases: []string{"task", "t"},
		Usage:   "Manage tasks across the todo, watch and later lists",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "Show tasks grouped by list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "list",
						Aliases: []string{"l"},
						Usage:   "Only show one list: todo, watch or later",
					},
					formatFlag(),
				},
				Action: r.TasksList,
			},
			{
				Name:  "add",
				Usage: "Create a task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "title"},
				},
				Flags: append(taskFlags(), &cli.StringFlag{
					Name:    "list",
					Aliases: []string{"l"},
					Usage:   "List to add to: todo, watch or later",
					Value:   "todo",
				}),
				Action: r.TasksAdd,
			},
			{
				Name:  "update",
				Usage: "Change fields of a task; unset flags are left alone",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: append(taskFlags(),
					&cli.StringFlag{Name: "title", Usage: "New title"},
					&cli.StringFlag{Name: "list", Aliases: []string{"l"}, Usage: "Move to list: todo, watch or later"},
				),
				Action: r.TasksUpdate,
			},
			{
				Name:  "done",
				Usage: "Complete a task, on today's card too if it is there",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.TasksDone,
			},
			{
				Name:  "move",
				Usage: "Move a task to another list",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
					&cli.StringArg{Name: "list"},
				},
				Action: r.TasksMove,
			},
			{
				Name:    "rm",
				Aliases: []string{"delete"},
				Usage:   "Delete a task",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.TasksDelete,
			},
			{
				Name:  "export",
				Usage: "Write every list and today's card to files",
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: flowmaster_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent file writers",
						Value: 4,
					},
					&cli.BoolFlag{
						Name:  "no-card",
						Usage: "Leave today's card out",
					},
				},
				Action: r.TasksExport,
			},
		},
	}
}

// cardCommand handles today's card
func cardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "card",
		Aliases: []string{"today"},
		Usage:   "Manage today's card",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show today's card",
				Flags:  []cli.Flag{formatFlag()},
				Action: r.CardShow,
			},
			{
				Name:      "plan",
				Aliases:   []string{"create"},
				Usage:     "Put 1-5 tasks on today's card, replacing its task list",
				ArgsUsage: "<task-id>...",
				Action:    r.CardPlan,
			},
			{
				Name:  "done",
				Usage: "Complete a task on today's card and record it as an accomplishment",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Action: r.TasksDone,
			},
			{
				Name:  "accomplish",
				Usage: "Record an accomplishment on today's card",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "title"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "Where the accomplishment came from",
						Value: "manual",
					},
					&cli.StringFlag{
						Name:  "task-id",
						Usage: "Related task",
					},
				},
				Action: r.CardAccomplish,
			},
		},
	}
}

// syncCommand reloads every store and prints a summary.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Revalidate the session and fetch tasks and today's card",
		Action: r.Sync,
	}
}

// boardCommand returns the top-level TUI command for the interactive board.
func boardCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "board",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive board",
		Action:  r.Board,
	}
}
