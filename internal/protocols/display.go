package protocols

import (
	"github.com/bnema/wayskk/internal/logger"
	"github.com/bnema/wayskk/internal/wire"
)

// Display is wl_display, the connection singleton.
type Display struct {
	BaseProxy
}

func (d *Display) Interface() string { return "wl_display" }

// Sync requests a wl_callback that fires once every prior request is handled.
func (d *Display) Sync() (*Callback, error) {
	cb := &Callback{BaseProxy: BaseProxy{client: d.client, id: d.client.newID()}}

	// Opcode 0: sync
	m := d.request(0)
	m.PutObject(cb.id)
	if err := d.client.send(m); err != nil {
		return nil, err
	}
	d.client.register(cb)
	return cb, nil
}

// GetRegistry creates the registry object.
func (d *Display) GetRegistry() (*Registry, error) {
	r := &Registry{BaseProxy: BaseProxy{client: d.client, id: d.client.newID()}}

	// Opcode 1: get_registry
	m := d.request(1)
	m.PutObject(r.id)
	if err := d.client.send(m); err != nil {
		return nil, err
	}
	d.client.register(r)
	return r, nil
}

func (d *Display) dispatch(msg *wire.Message) error {
	switch msg.Opcode {
	case 0: // error
		objID := msg.ReadObject()
		code := msg.ReadUint32()
		text := msg.ReadString()
		if err := msg.Err(); err != nil {
			return err
		}
		perr := &wire.ProtocolError{ObjectID: objID, Code: code, Message: text}
		if obj, ok := d.client.objects[objID]; ok {
			perr.Interface = obj.Interface()
		}
		d.client.protoErr = perr
		return perr
	case 1: // delete_id
		id := wire.ObjectID(msg.ReadUint32())
		if err := msg.Err(); err != nil {
			return err
		}
		delete(d.client.objects, id)
	}
	return nil
}

// Registry is wl_registry.
type Registry struct {
	BaseProxy
}

func (r *Registry) Interface() string { return "wl_registry" }

// Bind binds global name to the new object p. The proxy must carry a
// freshly allocated id.
func (r *Registry) Bind(name uint32, iface string, version uint32, p Proxy) error {
	// Opcode 0: bind (untyped new_id: interface, version, id)
	m := r.request(0)
	m.PutUint32(name)
	m.PutString(iface)
	m.PutUint32(version)
	m.PutObject(p.ID())
	if err := r.client.send(m); err != nil {
		return err
	}
	r.client.register(p)
	return nil
}

func (r *Registry) dispatch(msg *wire.Message) error {
	switch msg.Opcode {
	case 0: // global
		g := Global{
			Name:      msg.ReadUint32(),
			Interface: msg.ReadString(),
			Version:   msg.ReadUint32(),
		}
		if err := msg.Err(); err != nil {
			return err
		}
		r.client.globals[g.Name] = g
		logger.Debug("Global announced", "interface", g.Interface, "version", g.Version, "name", g.Name)
	case 1: // global_remove
		name := msg.ReadUint32()
		if err := msg.Err(); err != nil {
			return err
		}
		delete(r.client.globals, name)
	}
	return nil
}

// Callback is wl_callback.
type Callback struct {
	BaseProxy
	onDone func(data uint32)
}

func (c *Callback) Interface() string { return "wl_callback" }

func (c *Callback) dispatch(msg *wire.Message) error {
	if msg.Opcode != 0 {
		return nil
	}
	data := msg.ReadUint32()
	if err := msg.Err(); err != nil {
		return err
	}
	c.destroyed = true
	if c.onDone != nil {
		c.onDone(data)
	}
	return nil
}
