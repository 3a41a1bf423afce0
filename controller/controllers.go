package controller

import (
	"net/http"

	"github.com/dilshat/wa-sender/log"
	"github.com/dilshat/wa-sender/phone"
	"github.com/dilshat/wa-sender/registry"
	"github.com/dilshat/wa-sender/service"
	"github.com/dilshat/wa-sender/service/dto"
	"github.com/labstack/echo/v4"
)

func respondErr(c echo.Context, err error) error {
	switch err.(type) {
	case *service.InvalidPayloadErr, *phone.InvalidLengthErr:
		return c.String(http.StatusBadRequest, err.Error())
	case *registry.DuplicateContactErr, *service.RunInProgressErr:
		return c.String(http.StatusConflict, err.Error())
	default:
		log.Error.Println(err)
		return c.String(http.StatusInternalServerError, "System malfunction. Please, try later")
	}
}

// AddContact adds one recipient to the contact list.
func GetAddContactFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		contact := new(dto.Contact)
		if err := c.Bind(contact); err != nil {
			return err
		}

		view, err := srv.AddContact(*contact)
		if err != nil {
			return respondErr(c, err)
		}

		return c.JSON(http.StatusOK, view)
	}
}

// ImportContacts bulk-loads recipients from an uploaded CSV file.
func GetImportContactsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.String(http.StatusBadRequest, "file field is required")
		}

		file, err := fileHeader.Open()
		if err != nil {
			return respondErr(c, err)
		}
		defer file.Close()

		result, err := srv.ImportContacts(file)
		if err != nil {
			return respondErr(c, err)
		}

		return c.JSON(http.StatusOK, result)
	}
}

func GetListContactsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, srv.Contacts())
	}
}

func GetClearContactsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := srv.ClearContacts(); err != nil {
			return respondErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// StartRun kicks off a batch send over all pending contacts.
func GetStartRunFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(dto.RunRequest)
		if err := c.Bind(req); err != nil {
			return err
		}

		id, err := srv.StartRun(*req)
		if err != nil {
			return respondErr(c, err)
		}

		return c.JSON(http.StatusOK, id)
	}
}

func GetStopRunFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := srv.StopRun(); err != nil {
			return respondErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func GetRunStateFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, srv.RunState())
	}
}

// SendTest sends a single message to the configured test number.
func GetSendTestFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := new(dto.TestRequest)
		if err := c.Bind(req); err != nil {
			return err
		}

		result, err := srv.SendTest(*req)
		if err != nil {
			return respondErr(c, err)
		}

		return c.JSON(http.StatusOK, result)
	}
}

func GetSaveTemplateFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		template := new(dto.Template)
		if err := c.Bind(template); err != nil {
			return err
		}

		if err := srv.SaveTemplate(*template); err != nil {
			return respondErr(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

func GetListTemplatesFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		templates, err := srv.Templates()
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, templates)
	}
}

func GetRemoveTemplateFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := srv.RemoveTemplate(c.Param("name")); err != nil {
			return respondErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func GetSettingsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		settings, err := srv.GetSettings()
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, settings)
	}
}

func GetSaveSettingsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		settings := new(dto.Settings)
		if err := c.Bind(settings); err != nil {
			return err
		}

		if err := srv.SaveSettings(*settings); err != nil {
			return respondErr(c, err)
		}

		return c.NoContent(http.StatusNoContent)
	}
}

func GetStatsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		stats, err := srv.GetStats()
		if err != nil {
			return respondErr(c, err)
		}
		return c.JSON(http.StatusOK, stats)
	}
}

func GetResetStatsFunc(srv service.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := srv.ResetStats(); err != nil {
			return respondErr(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
