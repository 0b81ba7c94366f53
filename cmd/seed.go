package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/assessd/internal/directory"
	"github.com/abhisek/assessd/internal/store"
)

// seedFile is the YAML layout accepted by `assessd seed`.
type seedFile struct {
	Courses []struct {
		ID         string `yaml:"id"`
		Title      string `yaml:"title"`
		Instructor string `yaml:"instructor"`
		Lessons    []struct {
			ID      string `yaml:"id"`
			Title   string `yaml:"title"`
			Summary string `yaml:"summary"`
		} `yaml:"lessons"`
		Learners []string `yaml:"learners"`
	} `yaml:"courses"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load courses, lessons and enrollments into the directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var f seedFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := openStore(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		courseIDs, lessonIDs, err := applySeed(ctx, st, f)
		if err != nil {
			return err
		}
		fmt.Printf("seeded %d courses, %d lessons\n", len(courseIDs), len(lessonIDs))

		if cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer client.Close()
			cache := directory.NewCached(client, st.Repos().Directory, cfg.Redis.TTL, nil)
			if err := cache.Invalidate(ctx, courseIDs, lessonIDs); err != nil {
				return fmt.Errorf("invalidate directory cache: %w", err)
			}
		}
		return nil
	},
}

func applySeed(ctx context.Context, st *store.Store, f seedFile) (courseIDs, lessonIDs []string, err error) {
	err = st.InTx(ctx, func(r store.Repos) error {
		for _, c := range f.Courses {
			if c.ID == "" || c.Instructor == "" {
				return fmt.Errorf("course %q: id and instructor are required", c.Title)
			}
			if err := r.Directory.PutCourse(ctx, store.Course{ID: c.ID, Title: c.Title, InstructorID: c.Instructor}); err != nil {
				return err
			}
			courseIDs = append(courseIDs, c.ID)
			for _, l := range c.Lessons {
				if err := r.Directory.PutLesson(ctx, store.Lesson{ID: l.ID, CourseID: c.ID, Title: l.Title, Summary: l.Summary}); err != nil {
					return err
				}
				lessonIDs = append(lessonIDs, l.ID)
			}
			for _, u := range c.Learners {
				if err := r.Directory.Enroll(ctx, c.ID, u); err != nil {
					return err
				}
			}
		}
		return nil
	})
	return courseIDs, lessonIDs, err
}
