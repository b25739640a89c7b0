/*
Package readable provides a pull-based readable stream modeled on the WHATWG
ReadableStream default controller.

A Stream is fed by an UnderlyingSource. Start runs once in the background as
soon as the stream is created; Pull runs whenever the stream wants more data,
either because a read is waiting or because the queue is below the strategy's
high-water mark. The source pushes chunks through a Controller:

	s := readable.New(readable.UnderlyingSource[int]{
		Pull: func(ctx context.Context, c *readable.Controller[int]) error {
			n, ok, err := next(ctx)
			if err != nil {
				return err // the stream becomes errored
			}
			if !ok {
				return c.Close()
			}
			return c.Enqueue(n)
		},
	})

Consumers lock the stream to a single reader:

	r, err := s.GetReader()
	if err != nil {
		return err
	}
	defer r.ReleaseLock()

	for {
		res, err := r.Read(ctx)
		if err != nil {
			return err
		}
		if res.Done {
			break
		}
		use(res.Value)
	}

# Ordering

Pulls never overlap each other and never begin before Start returns
successfully. Cancel may run while a Pull is in flight. The context handed to
Start and Pull is cancelled when the cancel callback returns, so a blocked
Pull unwinds; after a normal close or an error it is cancelled once no
callback is running.

# Errors

An error returned from Start or Pull, or passed to Controller.Error, moves the
stream to StateErrored. Every pending and later read returns that exact error
value; it is not wrapped.

# Sources

FromSlice, FromChannel, FromIterator and FromReader adapt common Go producers.
Collect drains any Readable into a slice.
*/
package readable
