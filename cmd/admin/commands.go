package main

import (
	"fmt"
	"text/tabwriter"

	"warbler/internal/models"
	"warbler/internal/repository"
	"warbler/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// runtime is what the commands need from the environment. rdb may be nil.
type runtime struct {
	db         *gorm.DB
	rdb        *redis.Client
	bcryptCost int
}

type admin struct {
	users *service.UserService
	auth  *service.AuthService
	repo  repository.UserRepository
}

func newAdmin(rt *runtime) *admin {
	userRepo := repository.NewUserRepository(rt.db, rt.rdb)
	followRepo := repository.NewFollowRepository(rt.db)
	messageRepo := repository.NewMessageRepository(rt.db)
	likeRepo := repository.NewLikeRepository(rt.db)
	return &admin{
		users: service.NewUserService(userRepo, followRepo, messageRepo, likeRepo),
		auth:  service.NewAuthService(userRepo, rt.bcryptCost),
		repo:  userRepo,
	}
}

// newRootCmd builds the command tree. open is called lazily so --help works
// without a database.
func newRootCmd(open func() (*runtime, error)) *cobra.Command {
	var a *admin

	root := &cobra.Command{
		Use:          "admin",
		Short:        "Warbler account maintenance",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open()
			if err != nil {
				return err
			}
			a = newAdmin(rt)
			return nil
		},
	}

	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage user accounts",
	}

	var search string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users, optionally filtered by username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := a.users.ListUsers(cmd.Context(), search)
			if err != nil {
				return err
			}
			if len(users) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No users found")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tUSERNAME\tEMAIL\tJOINED")
			for _, u := range users {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Email, u.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}
	listCmd.Flags().StringVarP(&search, "search", "q", "", "Only users whose username contains this text")

	deleteCmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user with their messages, follows and likes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.lookup(cmd, args[0])
			if err != nil {
				return err
			}
			if err := a.users.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (ID: %d)\n", user.Username, user.ID)
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset-password <username> <new-password>",
		Short: "Replace a user's password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.auth.ResetPassword(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password reset for %s\n", args[0])
			return nil
		},
	}

	usersCmd.AddCommand(listCmd, deleteCmd, resetCmd)
	root.AddCommand(usersCmd)
	return root
}

func (a *admin) lookup(cmd *cobra.Command, username string) (*models.User, error) {
	user, err := a.repo.GetByUsername(cmd.Context(), username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}
