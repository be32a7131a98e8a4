package godeco

import (
	"bytes"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestContainer(t *testing.T) {
	t.Run("it should return singleton instances (same instance on multiple resolves)", func(t *testing.T) {
		// GIVEN
		container := MustBuild(MustRegisterSelf(NewCollection(), NewRepository))

		// WHEN
		repo1, err := Resolve[*Repository](container)
		require.NoError(t, err)
		repo2, err := Resolve[*Repository](container)
		require.NoError(t, err)

		// THEN
		assert.Same(t, repo1, repo2, "Expected same instance (singleton)")
	})

	t.Run("it should resolve the dependencies of a constructor", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, NewService)
		MustRegisterSelf(c, NewRepository)
		container := MustBuild(c)

		// WHEN
		service, err := Resolve[*Service](container)

		// THEN
		require.NoError(t, err)
		assert.Same(t, MustResolve[*Repository](container), service.Repo)
	})

	t.Run("it should resolve the last registration of a capability", func(t *testing.T) {
		// GIVEN
		first := NewSMTPSender()
		second := NewSMTPSender()
		c := NewCollection()
		MustRegisterInstance[EmailSender](c, first)
		MustRegisterInstance[EmailSender](c, second)
		container := MustBuild(c)

		// WHEN
		sender, err := Resolve[EmailSender](container)
		require.NoError(t, err)
		all, err := ResolveAll[EmailSender](container)
		require.NoError(t, err)

		// THEN
		assert.Same(t, second, sender)
		require.Len(t, all, 2)
		assert.Same(t, first, all[0])
		assert.Same(t, second, all[1])
	})

	t.Run("it should cache instances per registration, not per type", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegister[EmailSender](c, NewSMTPSender)
		MustRegister[EmailSender](c, NewSMTPSender)
		container := MustBuild(c)

		// WHEN
		all := make([]EmailSender, 0)
		for i := 0; i < 2; i++ {
			resolved, err := ResolveAll[EmailSender](container)
			require.NoError(t, err)
			all = append(all, resolved...)
		}

		// THEN
		require.Len(t, all, 4)
		assert.NotSame(t, all[0], all[1])
		assert.Same(t, all[0], all[2])
		assert.Same(t, all[1], all[3])
	})

	t.Run("it should return an empty list when resolving all of an unknown type", func(t *testing.T) {
		// GIVEN
		container := MustBuild(NewCollection())

		// WHEN
		all, err := ResolveAll[EmailSender](container)

		// THEN
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("it should fail to resolve an unknown type", func(t *testing.T) {
		// GIVEN
		container := MustBuild(NewCollection())

		// WHEN
		_, err := Resolve[*Repository](container)

		// THEN
		assert.ErrorIs(t, err, ErrServiceNotRegistered)
	})

	t.Run("it should build transient instances on every resolution", func(t *testing.T) {
		// GIVEN
		container := MustBuild(MustRegisterSelf(NewCollection(), NewRepository, WithLifetime(Transient)))

		// WHEN
		repo1 := MustResolve[*Repository](container)
		repo2 := MustResolve[*Repository](container)

		// THEN
		assert.NotSame(t, repo1, repo2)
	})

	t.Run("it should share scoped instances inside a scope only", func(t *testing.T) {
		// GIVEN
		container := MustBuild(MustRegisterSelf(NewCollection(), NewRepository, WithLifetime(Scoped)))
		scope1 := container.NewScope()
		scope2 := container.NewScope()

		// WHEN
		repo1 := MustResolve[*Repository](scope1)
		repo1Again := MustResolve[*Repository](scope1)
		repo2 := MustResolve[*Repository](scope2)

		// THEN
		assert.Same(t, repo1, repo1Again)
		assert.NotSame(t, repo1, repo2)
	})

	t.Run("it should refuse to resolve a scoped registration from the root container", func(t *testing.T) {
		// GIVEN
		container := MustBuild(MustRegisterSelf(NewCollection(), NewRepository, WithLifetime(Scoped)))

		// WHEN
		_, err := Resolve[*Repository](container)

		// THEN
		assert.ErrorIs(t, err, ErrScopedOnRoot)
	})

	t.Run("it should refuse a singleton capturing a scoped registration", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, NewRepository, WithLifetime(Scoped))
		MustRegisterSelf(c, NewService)
		container := MustBuild(c)

		// WHEN
		_, err := Resolve[*Service](container.NewScope())

		// THEN
		assert.ErrorIs(t, err, ErrScopedOnRoot)
	})

	t.Run("it should let scoped instances depend on singletons", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, NewRepository)
		MustRegisterSelf(c, NewService, WithLifetime(Scoped))
		container := MustBuild(c)

		// WHEN
		service1 := MustResolve[*Service](container.NewScope())
		service2 := MustResolve[*Service](container.NewScope())

		// THEN
		assert.NotSame(t, service1, service2)
		assert.Same(t, service1.Repo, service2.Repo)
	})

	t.Run("it should detect circular dependencies", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, newCircularA)
		MustRegisterSelf(c, newCircularB)
		container := MustBuild(c)

		// WHEN
		_, err := Resolve[*circularA](container)

		// THEN
		require.ErrorIs(t, err, ErrCircularDependency)
		assert.ErrorContains(t, err, "*godeco.circularA")
		assert.ErrorContains(t, err, "*godeco.circularB")
	})

	t.Run("it should inject the active resolver", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, NewRepository, WithLifetime(Scoped))
		MustRegisterSelf(c, func(r Resolver) (*Service, error) {
			repo, err := Resolve[*Repository](r)
			if err != nil {
				return nil, err
			}
			return NewService(repo), nil
		}, WithLifetime(Scoped))
		container := MustBuild(c)
		scope := container.NewScope()

		// WHEN
		service, err := Resolve[*Service](scope)

		// THEN
		require.NoError(t, err)
		assert.Same(t, MustResolve[*Repository](scope), service.Repo)
	})

	t.Run("it should pass the resolver to factories", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, NewRepository)
		MustRegisterFactory[*Service](c, func(r Resolver) (*Service, error) {
			return NewService(MustResolve[*Repository](r)), nil
		})
		container := MustBuild(c)

		// WHEN
		service, err := Resolve[*Service](container)

		// THEN
		require.NoError(t, err)
		assert.Equal(t, "postgres://localhost", service.Repo.DSN)
	})

	t.Run("it should construct with supplied values first", func(t *testing.T) {
		// GIVEN
		c := MustRegisterInstance(NewCollection(), &RetryPolicy{Attempts: 5})
		container := MustBuild(c)
		ctor, err := NewConstructor(NewRetrySender)
		require.NoError(t, err)
		smtp := NewSMTPSender()

		// WHEN
		built, err := container.Construct(ctor, reflect.ValueOf(smtp))

		// THEN
		require.NoError(t, err)
		retry := built.Interface().(*RetrySender)
		assert.Same(t, smtp, retry.inner)
		assert.Equal(t, 5, retry.policy.Attempts)
	})

	t.Run("it should reject supplied values of the wrong type", func(t *testing.T) {
		// GIVEN
		container := MustBuild(NewCollection())
		ctor, err := NewConstructor(NewRetrySender)
		require.NoError(t, err)

		// WHEN
		_, err = container.Construct(ctor, reflect.ValueOf(NewRepository()))

		// THEN
		assert.ErrorIs(t, err, ErrInvalidConstructor)
	})

	t.Run("it should return the error of a failing constructor", func(t *testing.T) {
		// GIVEN
		container := MustBuild(MustRegisterSelf(NewCollection(), NewFailingRepository))

		// WHEN
		_, err := Resolve[*Repository](container)

		// THEN
		assert.ErrorContains(t, err, "provider intentionally failed")
	})

	t.Run("it should recover from panicking constructors and factories", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, func() *Repository { panic("no database") })
		MustRegisterFactory[*Service](c, func(Resolver) (*Service, error) { panic("no service") })
		container := MustBuild(c)

		// WHEN
		_, errRepo := Resolve[*Repository](container)
		_, errService := Resolve[*Service](container)

		// THEN
		assert.ErrorContains(t, errRepo, "panic calling constructor")
		assert.ErrorContains(t, errRepo, "no database")
		assert.ErrorContains(t, errService, "panic calling factory")
		assert.ErrorContains(t, errService, "no service")
	})

	t.Run("it should build a singleton once under concurrent resolutions", func(t *testing.T) {
		// GIVEN
		var built atomic.Int32
		container := MustBuild(MustRegisterSelf(NewCollection(), func() *Repository {
			built.Add(1)
			time.Sleep(10 * time.Millisecond)
			return NewRepository()
		}))

		// WHEN
		results := make([]*Repository, 32)
		var g errgroup.Group
		for i := range results {
			i := i
			g.Go(func() error {
				repo, err := Resolve[*Repository](container.NewScope())
				results[i] = repo
				return err
			})
		}
		require.NoError(t, g.Wait())

		// THEN
		assert.Equal(t, int32(1), built.Load())
		for _, repo := range results {
			assert.Same(t, results[0], repo)
		}
	})
}

func TestCollection_Build(t *testing.T) {
	t.Run("it should report every missing dependency", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, NewService)
		MustRegisterSelf(c, NewRetrySender)

		// WHEN
		_, err := c.Build()

		// THEN
		require.ErrorIs(t, err, ErrServiceNotRegistered)
		assert.ErrorContains(t, err, "*godeco.Repository")
		assert.ErrorContains(t, err, "godeco.EmailSender")
		assert.ErrorContains(t, err, "*godeco.RetryPolicy")
	})

	t.Run("it should report registrations without source", func(t *testing.T) {
		// GIVEN
		c := NewCollection().Add(&Descriptor{capability: TypeOf[EmailSender]()})

		// WHEN
		_, err := c.Build()

		// THEN
		assert.ErrorIs(t, err, ErrNoSource)
	})

	t.Run("it should not require a registration for the resolver", func(t *testing.T) {
		// GIVEN
		c := MustRegisterSelf(NewCollection(), func(r Resolver) *Repository { return NewRepository() })

		// WHEN
		_, err := c.Build()

		// THEN
		assert.NoError(t, err)
	})

	t.Run("it should keep its snapshot when the collection changes", func(t *testing.T) {
		// GIVEN
		c := MustRegisterSelf(NewCollection(), NewRepository)
		container := MustBuild(c)

		// WHEN
		MustRegisterSelf(c, NewService)

		// THEN
		_, err := Resolve[*Service](container)
		assert.ErrorIs(t, err, ErrServiceNotRegistered)
	})

	t.Run("it should fail on a nil collection", func(t *testing.T) {
		// GIVEN
		var c *Collection

		// WHEN
		_, err := c.Build()

		// THEN
		assert.ErrorIs(t, err, ErrNilCollection)
	})

	t.Run("it should log the build", func(t *testing.T) {
		// GIVEN
		var buf bytes.Buffer
		c := MustRegisterSelf(NewCollection(WithLogger(zerolog.New(&buf))), NewRepository)

		// WHEN
		container := MustBuild(c)
		MustResolve[*Repository](container)

		// THEN
		assert.Contains(t, buf.String(), `"message":"container built"`)
		assert.Contains(t, buf.String(), `"message":"component built"`)
	})
}

func TestContainer_Close(t *testing.T) {
	t.Run("it should close the scoped instances in reverse creation order", func(t *testing.T) {
		// GIVEN
		var order []string
		c := NewCollection()
		MustRegisterSelf(c, func() *closeRecorder {
			return &closeRecorder{name: "first", order: &order}
		}, WithLifetime(Scoped))
		MustRegisterSelf(c, func(first *closeRecorder) *SMTPSender {
			order = append(order, "built")
			return NewSMTPSender()
		}, WithLifetime(Scoped))
		MustRegisterFactory[Closeable](c, func(r Resolver) (*closeRecorder, error) {
			MustResolve[*SMTPSender](r)
			return &closeRecorder{name: "last", order: &order}, nil
		}, WithLifetime(Scoped))
		container := MustBuild(c)
		scope := container.NewScope()
		MustResolve[Closeable](scope)

		// WHEN
		err := scope.Close()

		// THEN
		require.NoError(t, err)
		assert.Equal(t, []string{"built", "last", "first"}, order)
	})

	t.Run("it should join the errors of the instances failing to close", func(t *testing.T) {
		// GIVEN
		var order []string
		errFirst := errors.New("first failed")
		errSecond := errors.New("second failed")
		c := NewCollection()
		MustRegisterSelf(c, func() *closeRecorder {
			return &closeRecorder{name: "first", order: &order, err: errFirst}
		})
		MustRegisterFactory[Closeable](c, func(Resolver) (*closeRecorder, error) {
			return &closeRecorder{name: "second", order: &order, err: errSecond}, nil
		})
		container := MustBuild(c)
		MustResolve[*closeRecorder](container)
		MustResolve[Closeable](container)

		// WHEN
		err := container.Close()

		// THEN
		assert.ErrorIs(t, err, errFirst)
		assert.ErrorIs(t, err, errSecond)
		assert.Equal(t, []string{"second", "first"}, order)
	})

	t.Run("it should not close instances registered as is", func(t *testing.T) {
		// GIVEN
		smtp := NewSMTPSender()
		container := MustBuild(MustRegisterInstance(NewCollection(), smtp))
		MustResolve[*SMTPSender](container)

		// WHEN
		err := container.Close()

		// THEN
		require.NoError(t, err)
		assert.False(t, smtp.closed)
	})

	t.Run("it should refuse to resolve once closed", func(t *testing.T) {
		// GIVEN
		container := MustBuild(MustRegisterSelf(NewCollection(), NewRepository))
		scope := container.NewScope()
		require.NoError(t, scope.Close())

		// WHEN
		_, errScope := Resolve[*Repository](scope)
		errCloseAgain := scope.Close()
		require.NoError(t, container.Close())
		_, errContainer := Resolve[*Repository](container)

		// THEN
		assert.ErrorIs(t, errScope, ErrScopeClosed)
		assert.ErrorIs(t, errCloseAgain, ErrScopeClosed)
		assert.ErrorIs(t, errContainer, ErrScopeClosed)
		assert.ErrorIs(t, container.Close(), ErrScopeClosed)
	})
}

func TestContainer_Describe(t *testing.T) {
	t.Run("it should describe the registrations and their dependencies", func(t *testing.T) {
		// GIVEN
		c := NewCollection()
		MustRegisterSelf(c, NewRepository, Description("the main database"))
		MustRegisterSelf(c, NewService, WithLifetime(Scoped))
		container := MustBuild(c)
		MustResolve[*Repository](container)

		// WHEN
		description := container.Describe()

		// THEN
		assert.Contains(t, description, "* Registrations:")
		assert.Contains(t, description, "*godeco.Repository (lifetime=singleton)")
		assert.Contains(t, description, "description: the main database")
		assert.Contains(t, description, "*godeco.Service (lifetime=scoped)")
		assert.Contains(t, description, "\t\t\t- *godeco.Repository\n")
		assert.Contains(t, description, "* Singletons built: 1")
	})
}

func TestContainer_ConcurrentBuildFailure(t *testing.T) {
	t.Run("it should build a single instance after a failed first build", func(t *testing.T) {
		// GIVEN
		var calls, built atomic.Int32
		container := MustBuild(MustRegisterSelf(NewCollection(), func() (*Repository, error) {
			if calls.Add(1) == 1 {
				time.Sleep(20 * time.Millisecond)
				return nil, errors.New("database not ready")
			}
			built.Add(1)
			time.Sleep(5 * time.Millisecond)
			return NewRepository(), nil
		}))

		// WHEN
		results := make([]*Repository, 16)
		errs := make([]error, 16)
		var g errgroup.Group
		for i := range results {
			i := i
			g.Go(func() error {
				results[i], errs[i] = Resolve[*Repository](container)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		// THEN
		var resolved []*Repository
		failures := 0
		for i, err := range errs {
			if err != nil {
				failures++
				assert.ErrorContains(t, err, "database not ready")
				continue
			}
			resolved = append(resolved, results[i])
		}
		assert.Equal(t, 1, failures)
		assert.Equal(t, int32(1), built.Load())
		require.NotEmpty(t, resolved)
		for _, repo := range resolved {
			assert.Same(t, resolved[0], repo)
		}
	})

	t.Run("it should build a single scoped instance after a failed first build", func(t *testing.T) {
		// GIVEN
		var calls atomic.Int32
		container := MustBuild(MustRegisterSelf(NewCollection(), func() (*Repository, error) {
			if calls.Add(1) == 1 {
				time.Sleep(20 * time.Millisecond)
				return nil, errors.New("database not ready")
			}
			time.Sleep(5 * time.Millisecond)
			return NewRepository(), nil
		}, WithLifetime(Scoped)))
		scope := container.NewScope()

		// WHEN
		results := make([]*Repository, 16)
		var g errgroup.Group
		for i := range results {
			i := i
			g.Go(func() error {
				results[i], _ = Resolve[*Repository](scope)
				return nil
			})
		}
		require.NoError(t, g.Wait())

		// THEN
		var first *Repository
		for _, repo := range results {
			if repo == nil {
				continue
			}
			if first == nil {
				first = repo
			}
			assert.Same(t, first, repo)
		}
		assert.NotNil(t, first)
		assert.Equal(t, int32(2), calls.Load())
	})
}

func TestCollection_BuildLifetime(t *testing.T) {
	t.Run("it should reject a registration with an unknown lifetime", func(t *testing.T) {
		// GIVEN
		ctor, err := NewConstructor(NewRepository)
		require.NoError(t, err)
		c := NewCollection().Add(NewConstructorDescriptor(TypeOf[*Repository](), ctor, Lifetime(42)))

		// WHEN
		_, err = c.Build()

		// THEN
		assert.ErrorIs(t, err, ErrInvalidLifetime)
	})
}
