package maestros

import (
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/Veraticus/esparrago/internal/records"
	"github.com/Veraticus/esparrago/internal/tabular"
)

var agricultorEntity = entity[model.Agricultor]{
	name:    NameAgricultores,
	sheet:   tabular.SheetAgricultores,
	key:     model.KeyAgricultor,
	columns: model.AgricultorColumns,
	// Orden is maintained in the sheet by hand: blank on add, kept on edit.
	prepare: func(a *model.Agricultor, current records.Record) error {
		a.Orden = current["Orden"]
		return nil
	},
}

var clienteEntity = entity[model.Cliente]{
	name:    NameClientes,
	sheet:   tabular.SheetClientes,
	key:     model.KeyCliente,
	columns: model.ClienteColumns,
	prepare: func(c *model.Cliente, current records.Record) error {
		if current == nil {
			return nil
		}
		// The ID is the row's identity and never changes on edit.
		var stored model.Cliente
		if err := records.Decode(records.Record{model.KeyCliente: current[model.KeyCliente]}, &stored); err != nil {
			return err
		}
		c.ID = stored.ID
		return nil
	},
}

var productoEntity = entity[model.Producto]{
	name:    NameProductos,
	sheet:   tabular.SheetProductos,
	key:     model.KeyProducto,
	columns: model.ProductoColumns,
}

var comisionEntity = entity[model.Comision]{
	name:    NameComisiones,
	sheet:   tabular.SheetComisiones,
	key:     model.KeyComision,
	columns: model.ComisionColumns,
}

var cajaEntity = entity[model.Caja]{
	name:    NameCajas,
	sheet:   tabular.SheetCajas,
	key:     model.KeyCaja,
	columns: model.CajaColumns,
	prepare: func(c *model.Caja, _ records.Record) error {
		c.ComputeTotales()
		return nil
	},
}
